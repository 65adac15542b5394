package fullyloaded

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/store/cqrs"
)

const usage = `subcommand required

Usage: fullyloaded [flags] <command>

Commands:
  run       Start the Fully Loaded API server
  migrate   Create the backend schema and indexes
  sync      Copy records missed by the secondary store (CQRS catch-up)

Examples:
  fullyloaded run                                    # FULLYLOADED_BACKEND, default memory
  fullyloaded -port=8090 run

  # Moving to a second backend (FULLYLOADED_SECONDARY set)
  fullyloaded -mode single run                       # Writes mirrored to the secondary
  fullyloaded -mode read_only run                    # Freeze writes while validating
  fullyloaded -mode switching run                    # Reads from the secondary
  fullyloaded -mode reversed run                     # Secondary becomes the write target

  fullyloaded sync                                   # Forward sync, last 24h
  fullyloaded -sync-direction reverse -sync-since 2024-03-19T00:00:00Z sync`

// Parse reads flags from args and the rest of the configuration from the
// environment. A .env file in the working directory is loaded first when
// present; variables already set take precedence.
func Parse(args []string) (Command, *Config, error) {
	_ = godotenv.Load()

	flagSet := flag.NewFlagSet("fullyloaded", flag.ContinueOnError)

	var (
		syncDir   = flagSet.String("sync-direction", "forward", "Sync direction: forward (primary->secondary) or reverse (secondary->primary)")
		syncSince = flagSet.String("sync-since", "", "Sync changes since this time (RFC3339)")
		syncUntil = flagSet.String("sync-until", "", "Sync changes until this time (RFC3339)")
		mode      = flagSet.String("mode", "single", "Migration mode: single, read_only, switching, reversed")
		port      = flagSet.String("port", getEnv("PORT", "8080"), "Server port")
		readOnly  = flagSet.Bool("read-only", false, "Start in read-only mode")
		logLevel  = flagSet.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error")
		logFile   = flagSet.String("log-file", getEnv("LOG_FILE", ""), "Append logs to this file instead of stdout")
		logFormat = flagSet.String("log-format", getEnv("LOG_FORMAT", LogFormatJSON), "Log format: json or console")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, errors.New(usage)
	}

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{}
	case "sync":
		if *syncDir != "forward" && *syncDir != "reverse" {
			return nil, nil, fmt.Errorf("invalid sync direction: %s (must be 'forward' or 'reverse')", *syncDir)
		}
		cmd = &SyncCommand{
			Direction: *syncDir,
			Since:     *syncSince,
			Until:     *syncUntil,
		}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate, sync", remainingArgs[0])
	}

	if *logFormat != LogFormatJSON && *logFormat != LogFormatConsole {
		return nil, nil, fmt.Errorf("invalid log format: %s (must be 'json' or 'console')", *logFormat)
	}

	migrationMode, err := cqrs.ParseMode(*mode)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid migration mode: %s", *mode)
	}

	idle, err := time.ParseDuration(getEnv("AUTH_IDLE_TIMEOUT", auth.DefaultIdleTimeout.String()))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid AUTH_IDLE_TIMEOUT: %w", err)
	}

	config := &Config{
		Backend:              getEnv("FULLYLOADED_BACKEND", BackendMemory),
		Secondary:            getEnv("FULLYLOADED_SECONDARY", ""),
		BaseURL:              getEnv("NEXT_PUBLIC_BASE_URL", checklist.DefaultBaseURL),
		FirestoreProjectID:   getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		AuthMode:             getEnv("AUTH_MODE", AuthModeJWT),
		JWTSecret:            getEnv("AUTH_JWT_SECRET", ""),
		IdleTimeout:          idle,
		AdminUIDs:            splitList(getEnv("ADMIN_UIDS", "")),
		LogLevel:             *logLevel,
		LogPath:              *logFile,
		LogFormat:            *logFormat,
		MigrationMode:        migrationMode,
		ReadOnly:             *readOnly,
		ServerPort:           *port,
	}
	config.SurrealDB.URL = getEnv("SURREALDB_URL", "ws://localhost:8000/rpc")
	config.SurrealDB.Namespace = getEnv("SURREALDB_NS", "fullyloaded")
	config.SurrealDB.Database = getEnv("SURREALDB_DB", "fullyloaded")
	config.SurrealDB.Username = getEnv("SURREALDB_USER", "root")
	config.SurrealDB.Password = getEnv("SURREALDB_PASS", "root")
	config.S3.Bucket = getEnv("S3_BUCKET", "")
	config.S3.Region = getEnv("AWS_REGION", "us-east-1")
	config.S3.PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", "")

	if config.Secondary == "" && (migrationMode == cqrs.ModeSwitching || migrationMode == cqrs.ModeReversed) {
		return nil, nil, fmt.Errorf("mode %s requires FULLYLOADED_SECONDARY", migrationMode)
	}
	if config.Secondary != "" && config.Secondary == config.Backend {
		return nil, nil, fmt.Errorf("secondary backend must differ from the primary (%s)", config.Backend)
	}

	return cmd, config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
