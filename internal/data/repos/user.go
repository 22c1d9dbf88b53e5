package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, user *types.User) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, user *types.User) error {
	return conn(r.db, dbc).Create(user).Error
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var row types.User
	err := conn(r.db, dbc).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	var row types.User
	err := conn(r.db, dbc).Where("username = ?", username).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	var row types.User
	err := conn(r.db, dbc).Where("email = ?", email).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
