package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/daggerwin/automod/internal/database/dbretry"
	"github.com/daggerwin/automod/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	// ErrCaseNotFound is returned when no case has the requested id.
	ErrCaseNotFound = errors.New("case not found")
	// ErrDuplicateCase is returned when a case with the same id already exists.
	ErrDuplicateCase = errors.New("case already exists")
)

// CaseModel handles database operations for moderation cases.
type CaseModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCase creates a new case model instance.
func NewCase(db *bun.DB, logger *zap.Logger) *CaseModel {
	return &CaseModel{
		db:     db,
		logger: logger.Named("db_case"),
	}
}

// MaxCaseID returns the highest stored case id, or 0 when no cases exist.
func (m *CaseModel) MaxCaseID(ctx context.Context) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		var maxID int64

		err := m.db.NewSelect().
			Model((*types.Case)(nil)).
			ColumnExpr("COALESCE(MAX(case_id), 0)").
			Scan(ctx, &maxID)
		if err != nil {
			return 0, fmt.Errorf("failed to get max case id: %w", err)
		}

		return maxID, nil
	})
}

// Exists reports whether a case with the given id is stored.
func (m *CaseModel) Exists(ctx context.Context, caseID int64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Case)(nil)).
			Where("case_id = ?", caseID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check case %d: %w", caseID, err)
		}

		return exists, nil
	})
}

// Create inserts a case. A conflicting case id yields ErrDuplicateCase and leaves the stored case untouched.
func (m *CaseModel) Create(ctx context.Context, c *types.Case) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewInsert().
			Model(c).
			On("CONFLICT (case_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create case %d: %w", c.CaseID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateCase, c.CaseID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created case",
		zap.Int64("caseID", c.CaseID),
		zap.String("action", string(c.Action)),
		zap.Uint64("targetID", c.TargetID))

	return nil
}

// GetByID loads a case by its id.
func (m *CaseModel) GetByID(ctx context.Context, caseID int64) (*types.Case, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Case, error) {
		var c types.Case

		err := m.db.NewSelect().
			Model(&c).
			Where("case_id = ?", caseID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %d", ErrCaseNotFound, caseID)
			}

			return nil, fmt.Errorf("failed to get case %d: %w", caseID, err)
		}

		return &c, nil
	})
}

// GetByTarget returns the cases recorded against a user, newest first.
func (m *CaseModel) GetByTarget(ctx context.Context, targetID uint64, limit int) ([]*types.Case, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Case, error) {
		var cases []*types.Case

		err := m.db.NewSelect().
			Model(&cases).
			Where("target_id = ?", targetID).
			Order("case_id DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get cases for %d: %w", targetID, err)
		}

		return cases, nil
	})
}
