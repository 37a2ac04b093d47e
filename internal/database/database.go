package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/daggerwin/automod/internal/database/models"
	"github.com/daggerwin/automod/internal/database/service"
	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"go.uber.org/zap"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client defines the methods that a database client must implement.
type Client interface {
	// Model returns the repository containing all model operations.
	Model() *Repository
	// Moderation returns the service used by the automod engine.
	Moderation() *service.ModerationService
	// Close gracefully shuts down the database connection.
	Close() error
	// DB returns the underlying bun.DB instance.
	DB() *bun.DB
}

// Repository provides access to all database models.
type Repository struct {
	cases      *models.CaseModel
	prohibited *models.ProhibitedModel
}

// Case returns the case model.
func (r *Repository) Case() *models.CaseModel {
	return r.cases
}

// Prohibited returns the prohibited list model.
func (r *Repository) Prohibited() *models.ProhibitedModel {
	return r.prohibited
}

type clientImpl struct {
	db         *bun.DB
	logger     *zap.Logger
	repo       *Repository
	moderation *service.ModerationService
}

// NewConnection establishes a new Postgres connection and returns a Client instance.
func NewConnection(
	ctx context.Context, cfg *config.PostgreSQL, telemetryCfg *config.Telemetry, logger *zap.Logger,
) (Client, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("automod"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())

	if telemetryCfg.UptraceDSN != "" {
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.DBName)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	client := NewClient(db, logger)
	logger.Info("Database connection established")

	return client, nil
}

// NewClient wraps an open bun.DB, registering the query hook and all models.
func NewClient(db *bun.DB, logger *zap.Logger) Client {
	db.AddQueryHook(NewQueryHook(logger))

	repo := &Repository{
		cases:      models.NewCase(db, logger),
		prohibited: models.NewProhibited(db, logger),
	}

	return &clientImpl{
		db:         db,
		logger:     logger,
		repo:       repo,
		moderation: service.NewModeration(repo.cases, repo.prohibited, logger),
	}
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// Model returns the repository containing all model operations.
func (c *clientImpl) Model() *Repository {
	return c.repo
}

// Moderation returns the moderation service.
func (c *clientImpl) Moderation() *service.ModerationService {
	return c.moderation
}

// DB returns the underlying bun.DB instance.
func (c *clientImpl) DB() *bun.DB {
	return c.db
}
