// Package db is the GORM-backed persistence layer of the marketplace.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN overrides the assembled connection string. For sqlite it is the file path
	// or ":memory:".
	DSN          string
	MaxOpenConns int
	Debug        bool
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "", DriverPostgres:
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		}
		return postgres.Open(dsn), nil
	case DriverMySQL:
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				c.User, c.Password, c.Host, c.Port, c.DBName)
		}
		return mysql.Open(dsn), nil
	case DriverSQLite:
		dsn := c.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// NewRepository opens the database. It does not migrate; call Migrate.
func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	switch {
	case cfg.Driver == DriverSQLite:
		// Every connection to ":memory:" is a separate database.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &Repository{db: db}, nil
}

// Migrate creates or updates the schema.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Company{},
		&models.Job{},
		&models.CandidateProfile{},
		&models.Resume{},
		&models.Application{},
		&models.SavedJob{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// MySQL has no partial indexes; the resume lock keeps the invariant there.
	if name := db.Dialector.Name(); name == DriverPostgres || name == DriverSQLite {
		if err := db.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_resumes_one_primary ON resumes (candidate_id) WHERE is_primary",
		).Error; err != nil {
			return fmt.Errorf("failed to create primary resume index: %w", err)
		}
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return translate(db.PingContext(ctx))
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translate maps driver errors onto the service taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", e.ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", e.ErrTransient, err)
	default:
		return err
	}
}
