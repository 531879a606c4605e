package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// PostgresStorage is a MetadataCache shared by every process pointed at the
// same database.
type PostgresStorage struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, ttl time.Duration, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	storage := &PostgresStorage{db: db, ttl: ttl, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Metadata cache connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, appID int) (CachedDetails, bool, error) {
	query := `
		SELECT found, genres, categories, short_description
		FROM app_metadata_cache
		WHERE app_id = $1 AND fetched_at > $2`

	var (
		entry      CachedDetails
		genres     []string
		categories []string
	)
	err := s.db.QueryRowContext(ctx, query, appID, time.Now().Add(-s.ttl)).Scan(
		&entry.Found,
		pq.Array(&genres),
		pq.Array(&categories),
		&entry.Details.ShortDescription,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedDetails{}, false, nil
	}
	if err != nil {
		return CachedDetails{}, false, fmt.Errorf("error querying metadata cache: %w", err)
	}

	entry.Details.Genres = nonNil(genres)
	entry.Details.Categories = nonNil(categories)
	return entry, true, nil
}

func (s *PostgresStorage) Put(ctx context.Context, appID int, entry CachedDetails) error {
	query := `
		INSERT INTO app_metadata_cache (app_id, found, genres, categories, short_description, fetched_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (app_id) DO UPDATE
		SET found = EXCLUDED.found,
		    genres = EXCLUDED.genres,
		    categories = EXCLUDED.categories,
		    short_description = EXCLUDED.short_description,
		    fetched_at = EXCLUDED.fetched_at`

	_, err := s.db.ExecContext(ctx, query,
		appID,
		entry.Found,
		pq.Array(nonNil(entry.Details.Genres)),
		pq.Array(nonNil(entry.Details.Categories)),
		entry.Details.ShortDescription,
	)
	if err != nil {
		return fmt.Errorf("error writing metadata cache: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Prune(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM app_metadata_cache WHERE fetched_at <= $1`,
		time.Now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("error pruning metadata cache: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ MetadataCache = (*PostgresStorage)(nil)
var _ MetadataCache = (*MemoryStorage)(nil)
