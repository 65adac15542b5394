package fullyloaded

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync/atomic"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/logger"
	"github.com/fullyloaded/fullyloaded/pkg/media"
	"github.com/fullyloaded/fullyloaded/pkg/store"
	"github.com/fullyloaded/fullyloaded/pkg/store/cqrs"
	"github.com/fullyloaded/fullyloaded/pkg/store/firestore"
	"github.com/fullyloaded/fullyloaded/pkg/store/memory"
	"github.com/fullyloaded/fullyloaded/pkg/store/postgres"
	"github.com/fullyloaded/fullyloaded/pkg/store/surrealdb"
)

// Backend names accepted by FULLYLOADED_BACKEND and FULLYLOADED_SECONDARY.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendSurrealDB = "surrealdb"
	BackendPostgres  = "postgres"
)

// Log formats accepted by -log-format and LOG_FORMAT.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

// Config holds the application configuration.
type Config struct {
	// Backend is the primary store. Secondary, when set, enables CQRS
	// migration towards a second backend.
	Backend   string
	Secondary string

	// BaseURL prefixes share links.
	BaseURL string

	FirestoreProjectID   string
	FirestoreCredentials string
	SurrealDB            surrealdb.Config
	PostgresDSN          string

	AuthMode    string
	JWTSecret   string
	IdleTimeout time.Duration
	// AdminUIDs may use the /api/admin endpoints.
	AdminUIDs []string

	S3 media.S3Config

	LogLevel  string
	LogPath   string
	LogFormat string

	MigrationMode cqrs.MigrationMode
	ReadOnly      bool // When true, all write operations are rejected

	ServerPort string
}

// App wires the stores, services and HTTP handlers together.
type App struct {
	store    store.Store
	cqrs     *cqrs.CQRSStore
	config   *Config
	readOnly atomic.Bool
	logger   zerolog.Logger
	logData  *logger.LogData

	lists    *checklist.Lists
	sharing  *checklist.Sharing
	migrator *checklist.Migrator
	profiles *checklist.Profiles

	verifier auth.Verifier
	sessions *auth.Sessions
	uploader media.Uploader
}

// New opens the configured backends and builds the application.
func New(ctx context.Context, config *Config) (*App, error) {
	logData, err := logger.New().
		FromPath(config.LogPath).
		Level(config.LogLevel).
		Console(config.LogFormat == LogFormatConsole).
		Make()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log := logData.Logger

	b := &backends{config: config, logger: log}

	primary, err := b.open(ctx, config.Backend)
	if err != nil {
		return nil, err
	}
	var secondary store.Store
	if config.Secondary != "" {
		secondary, err = b.open(ctx, config.Secondary)
		if err != nil {
			_ = primary.Close()
			return nil, err
		}
	}
	cq := cqrs.NewCQRSStore(primary, secondary, config.MigrationMode, log.With().Str("component", "cqrs").Logger())
	if secondary != nil {
		log.Info().Str("mode", string(config.MigrationMode)).Msg("using CQRS store")
	}

	verifier, err := b.verifier(ctx)
	if err != nil {
		_ = cq.Close()
		return nil, err
	}

	var uploader media.Uploader
	if config.S3.Bucket != "" {
		s3, err := media.NewS3Uploader(config.S3)
		if err != nil {
			_ = cq.Close()
			return nil, err
		}
		uploader = s3
	}

	app := NewWithStore(config, cq, verifier, uploader, log)
	app.logData = logData
	return app, nil
}

// NewWithStore builds the application around an already opened store.
// verifier is required for authenticated routes; uploader may be nil.
func NewWithStore(config *Config, cq *cqrs.CQRSStore, verifier auth.Verifier, uploader media.Uploader, log zerolog.Logger) *App {
	app := &App{
		cqrs:     cq,
		config:   config,
		logger:   log,
		verifier: verifier,
		sessions: auth.NewSessions(config.IdleTimeout),
		uploader: uploader,
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = store.NewReadOnlyStore(cq, app.IsReadOnly)

	opts := []checklist.Option{checklist.WithLogger(log)}
	app.lists = checklist.NewLists(app.store, opts...)
	app.sharing = checklist.NewSharing(app.store, app.store, app.lists, config.BaseURL, opts...)
	app.migrator = checklist.NewMigrator(app.store, app.store, opts...)
	app.profiles = checklist.NewProfiles(app.store, opts...)
	return app
}

func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logData != nil {
		err = errors.Join(err, a.logData.Close())
	}
	return err
}

func (a *App) Store() store.Store {
	return a.store
}

func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Info().Bool("readOnly", readOnly).Msg("application read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

func (a *App) isAdmin(uid string) bool {
	return uid != "" && slices.Contains(a.config.AdminUIDs, uid)
}

// backends opens stores by name. The Firebase app is shared between the
// Firestore backend and Firebase token verification.
type backends struct {
	config   *Config
	logger   zerolog.Logger
	firebase *firebase.App
}

func (b *backends) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if b.firebase != nil {
		return b.firebase, nil
	}
	app, err := firestore.NewApp(ctx, b.config.FirestoreProjectID, b.config.FirestoreCredentials)
	if err != nil {
		return nil, err
	}
	b.firebase = app
	return app, nil
}

func (b *backends) open(ctx context.Context, name string) (store.Store, error) {
	switch name {
	case BackendMemory:
		b.logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.New(), nil
	case BackendFirestore:
		app, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		s, err := firestore.New(ctx, app, b.logger.With().Str("component", "firestore").Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Firestore: %w", err)
		}
		b.logger.Info().Str("project", b.config.FirestoreProjectID).Msg("connected to Firestore")
		return s, nil
	case BackendSurrealDB:
		s, err := surrealdb.New(ctx, b.config.SurrealDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		b.logger.Info().Str("url", b.config.SurrealDB.URL).Msg("connected to SurrealDB")
		return s, nil
	case BackendPostgres:
		s, err := postgres.New(b.config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		b.logger.Info().Msg("connected to PostgreSQL")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", name)
	}
}

func (b *backends) verifier(ctx context.Context) (auth.Verifier, error) {
	switch b.config.AuthMode {
	case AuthModeJWT:
		return auth.NewJWTVerifier(b.config.JWTSecret)
	case AuthModeFirebase:
		app, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(ctx, app)
	default:
		return nil, fmt.Errorf("unknown auth mode: %q", b.config.AuthMode)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
