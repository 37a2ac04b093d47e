package service

import (
	"context"

	"github.com/daggerwin/automod/internal/database/models"
	"github.com/daggerwin/automod/internal/database/types"
	"go.uber.org/zap"
)

// ModerationService exposes case records and prohibited lists to the automod engine.
type ModerationService struct {
	cases      *models.CaseModel
	prohibited *models.ProhibitedModel
	logger     *zap.Logger
}

// NewModeration creates a new moderation service.
func NewModeration(cases *models.CaseModel, prohibited *models.ProhibitedModel, logger *zap.Logger) *ModerationService {
	return &ModerationService{
		cases:      cases,
		prohibited: prohibited,
		logger:     logger.Named("moderation_service"),
	}
}

// MaxCaseID returns the highest stored case id.
func (s *ModerationService) MaxCaseID(ctx context.Context) (int64, error) {
	return s.cases.MaxCaseID(ctx)
}

// CaseExists reports whether the case id is taken.
func (s *ModerationService) CaseExists(ctx context.Context, caseID int64) (bool, error) {
	return s.cases.Exists(ctx, caseID)
}

// CreateCase persists c and returns it.
func (s *ModerationService) CreateCase(ctx context.Context, c *types.Case) (*types.Case, error) {
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Recorded case",
		zap.Int64("caseID", c.CaseID),
		zap.String("action", string(c.Action)),
		zap.Uint64("targetID", c.TargetID),
		zap.String("reason", c.Reason))

	return c, nil
}

// GetCase loads a case by id.
func (s *ModerationService) GetCase(ctx context.Context, caseID int64) (*types.Case, error) {
	return s.cases.GetByID(ctx, caseID)
}

// GetProhibitedWords returns the stored prohibited words.
func (s *ModerationService) GetProhibitedWords(ctx context.Context) ([]string, error) {
	return s.prohibited.GetWords(ctx)
}

// GetProhibitedURLs returns the stored prohibited hostnames.
func (s *ModerationService) GetProhibitedURLs(ctx context.Context) ([]string, error) {
	return s.prohibited.GetURLs(ctx)
}
