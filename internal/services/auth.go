// Package services holds the business logic between the HTTP handlers and
// the data layer. Each service wraps its multi-row writes in one database
// transaction and emits realtime broadcasts only after the commit.
package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthService interface {
	// Register creates the user plus its default group chat in one
	// transaction.
	Register(ctx context.Context, in RegisterInput) (*types.User, error)
	// Login verifies the password and returns a signed access token.
	Login(ctx context.Context, username, password string) (string, error)
	// VerifyToken parses the token and resolves the user it names.
	VerifyToken(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	db     *gorm.DB
	users  repos.UserRepo
	chats  repos.GroupChatRepo
	secret []byte
	expiry time.Duration
	log    *logger.Logger
}

func NewAuthService(db *gorm.DB, users repos.UserRepo, chats repos.GroupChatRepo, secret string, expiry time.Duration, baseLog *logger.Logger) AuthService {
	return &authService{
		db:     db,
		users:  users,
		chats:  chats,
		secret: []byte(secret),
		expiry: expiry,
		log:    baseLog.With("service", "AuthService"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *types.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		existing, err := s.users.GetByUsername(dbc, in.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUsernameTaken
		}
		existing, err = s.users.GetByEmail(dbc, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailTaken
		}

		user = &types.User{
			Username:       in.Username,
			Email:          in.Email,
			HashedPassword: string(hashed),
		}
		if err := s.users.Create(dbc, user); err != nil {
			return err
		}

		// every user gets the home-city chat its agents join by default
		return s.chats.Create(dbc, &types.GroupChat{
			Name:            types.DefaultGroupChatName,
			Description:     "The city your agents live in",
			CreatedByUserID: user.ID,
			IsActive:        true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "userID", user.ID, "username", user.Username)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(dbctx.New(ctx), username)
	if err != nil {
		return "", err
	}
	if user == nil {
		s.log.Warn("login failed, unknown user", "username", username)
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		s.log.Warn("login failed, bad password", "username", username)
		return "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.Username,
		"iat": now.Unix(),
		"exp": now.Add(s.expiry).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.log.Info("user logged in", "username", username)
	return signed, nil
}

func (s *authService) VerifyToken(ctx context.Context, tokenString string) (*types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByUsername(dbctx.New(ctx), username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}
