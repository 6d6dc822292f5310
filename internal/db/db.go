package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// Config selects the driver and connection settings. The sqlite driver exists
// for local development and tests; production runs on postgres.
type Config struct {
	Driver     string `env:"DRIVER" envDefault:"postgres"`
	Host       string `env:"HOST" envDefault:"localhost"`
	Port       string `env:"PORT" envDefault:"5432"`
	User       string `env:"USER" envDefault:"postgres"`
	Password   string `env:"PASSWORD"`
	Name       string `env:"NAME" envDefault:"lectern"`
	SSLMode    string `env:"SSL_MODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"lectern.db"`
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type Service struct {
	db       *gorm.DB
	log      *logger.Logger
	postgres bool
}

func NewService(cfg Config, baseLog *logger.Logger) (*Service, error) {
	serviceLog := baseLog.With("service", "DBService")

	var (
		conn gorm.Dialector
		pg   bool
	)
	switch cfg.Driver {
	case "sqlite":
		conn = sqlite.Open(cfg.SQLitePath)
	default:
		conn = postgres.Open(cfg.DSN())
		pg = true
	}

	serviceLog.Info("connecting to database", "driver", cfg.Driver)
	gormDB, err := gorm.Open(conn, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Service{db: gormDB, log: serviceLog, postgres: pg}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	return sqlDB.Close()
}

// AutoMigrateAll creates or updates every table, then installs the foreign
// keys by hand. GORM's own constraint migration is disabled so the schema
// stays deterministic across drivers.
func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	err := s.db.AutoMigrate(
		&types.Speaker{},
		&types.Collection{},
		&types.Lecture{},
		&types.Category{},
		&types.LectureCategory{},
		&types.CollectionCategory{},
		&types.User{},
		&types.Favorite{},
		&types.PlaybackPosition{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}

	// sqlite cannot ALTER TABLE ADD CONSTRAINT; it only sees the unique
	// indexes, which is enough for development and tests.
	if !s.postgres {
		return nil
	}

	s.log.Info("configuring foreign keys")
	for _, fk := range foreignKeys {
		drop := fmt.Sprintf(`ALTER TABLE %q DROP CONSTRAINT IF EXISTS %q`, fk.table, fk.name)
		if err := s.db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop %s: %w", fk.name, err)
		}
		add := fmt.Sprintf(`ALTER TABLE %q ADD CONSTRAINT %q FOREIGN KEY (%q) REFERENCES %q("id") ON DELETE %s`,
			fk.table, fk.name, fk.column, fk.refTable, fk.onDelete)
		if err := s.db.Exec(add).Error; err != nil {
			return fmt.Errorf("add %s: %w", fk.name, err)
		}
	}

	// At most one primary category per lecture/collection. The repos keep this
	// true on every driver; the partial indexes make postgres enforce it too.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_lecture_category_primary ON lecture_category (lecture_id) WHERE is_primary`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_collection_category_primary ON collection_category (collection_id) WHERE is_primary`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create primary-category index: %w", err)
		}
	}
	return nil
}

type foreignKey struct {
	table    string
	name     string
	column   string
	refTable string
	onDelete string
}

var foreignKeys = []foreignKey{
	{"collection", "fk_collection_speaker_id", "speaker_id", "speaker", "CASCADE"},
	{"lecture", "fk_lecture_speaker_id", "speaker_id", "speaker", "CASCADE"},
	{"lecture", "fk_lecture_collection_id", "collection_id", "collection", "CASCADE"},
	{"category", "fk_category_parent_id", "parent_id", "category", "SET NULL"},
	{"lecture_category", "fk_lecture_category_lecture_id", "lecture_id", "lecture", "CASCADE"},
	{"lecture_category", "fk_lecture_category_category_id", "category_id", "category", "CASCADE"},
	{"collection_category", "fk_collection_category_collection_id", "collection_id", "collection", "CASCADE"},
	{"collection_category", "fk_collection_category_category_id", "category_id", "category", "CASCADE"},
	{"favorite", "fk_favorite_user_id", "user_id", "app_user", "CASCADE"},
	{"favorite", "fk_favorite_lecture_id", "lecture_id", "lecture", "CASCADE"},
	{"playback_position", "fk_playback_position_user_id", "user_id", "app_user", "CASCADE"},
	{"playback_position", "fk_playback_position_lecture_id", "lecture_id", "lecture", "CASCADE"},
}
