package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/daggerwin/automod/internal/database/dbretry"
	"github.com/daggerwin/automod/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ProhibitedModel handles database operations for the prohibited word and url lists.
type ProhibitedModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewProhibited creates a new prohibited list model instance.
func NewProhibited(db *bun.DB, logger *zap.Logger) *ProhibitedModel {
	return &ProhibitedModel{
		db:     db,
		logger: logger.Named("db_prohibited"),
	}
}

// GetWords returns every prohibited word.
func (m *ProhibitedModel) GetWords(ctx context.Context) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var words []string

		err := m.db.NewSelect().
			Model((*types.ProhibitedWord)(nil)).
			Column("word").
			Order("word").
			Scan(ctx, &words)
		if err != nil {
			return nil, fmt.Errorf("failed to get prohibited words: %w", err)
		}

		return words, nil
	})
}

// GetURLs returns every prohibited hostname.
func (m *ProhibitedModel) GetURLs(ctx context.Context) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var urls []string

		err := m.db.NewSelect().
			Model((*types.ProhibitedURL)(nil)).
			Column("url").
			Order("url").
			Scan(ctx, &urls)
		if err != nil {
			return nil, fmt.Errorf("failed to get prohibited urls: %w", err)
		}

		return urls, nil
	})
}

// AddWords stores words after lower-casing them. Existing entries are ignored.
func (m *ProhibitedModel) AddWords(ctx context.Context, words ...string) error {
	if len(words) == 0 {
		return nil
	}

	now := time.Now()

	rows := make([]*types.ProhibitedWord, 0, len(words))
	for _, word := range words {
		rows = append(rows, &types.ProhibitedWord{Word: strings.ToLower(strings.TrimSpace(word)), CreatedAt: now})
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(&rows).On("CONFLICT (word) DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add prohibited words: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added prohibited words", zap.Int("count", len(rows)))

	return nil
}

// AddURLs stores hostnames after lower-casing them. Existing entries are ignored.
func (m *ProhibitedModel) AddURLs(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}

	now := time.Now()

	rows := make([]*types.ProhibitedURL, 0, len(urls))
	for _, url := range urls {
		rows = append(rows, &types.ProhibitedURL{URL: strings.ToLower(strings.TrimSpace(url)), CreatedAt: now})
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(&rows).On("CONFLICT (url) DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add prohibited urls: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added prohibited urls", zap.Int("count", len(rows)))

	return nil
}
