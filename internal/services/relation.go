package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type RelationService interface {
	// List returns relationships where both endpoints are agents of the
	// user.
	List(ctx context.Context, userID uuid.UUID) ([]*types.Relationship, error)
}

type relationService struct {
	db        *gorm.DB
	agents    repos.AgentRepo
	relations repos.RelationshipRepo
	log       *logger.Logger
}

func NewRelationService(db *gorm.DB, agents repos.AgentRepo, relations repos.RelationshipRepo, baseLog *logger.Logger) RelationService {
	return &relationService{
		db:        db,
		agents:    agents,
		relations: relations,
		log:       baseLog.With("service", "RelationService"),
	}
}

func (s *relationService) List(ctx context.Context, userID uuid.UUID) ([]*types.Relationship, error) {
	dbc := dbctx.New(ctx)

	agents, err := s.agents.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(agents))
	owned := make(map[uuid.UUID]bool, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
		owned[a.ID] = true
	}

	rels, err := s.relations.ListTouching(dbc, ids)
	if err != nil {
		return nil, err
	}
	// keep only edges fully inside the user's agent set
	out := make([]*types.Relationship, 0, len(rels))
	for _, r := range rels {
		if owned[r.SourceAgentID] && owned[r.TargetAgentID] {
			out = append(out, r)
		}
	}
	return out, nil
}
