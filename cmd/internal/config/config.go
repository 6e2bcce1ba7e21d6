package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"notekeeper/cmd/internal/domain/sqldb"
	"notekeeper/cmd/internal/domain/store"

	"github.com/labstack/gommon/bytes"
	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"
)

const (
	ProviderFirebase      = "firebase"
	ProviderCognito       = "cognito"
	ProviderCognitoRemote = "cognito-remote"
)

// snowflake reserves 10 bits for the node
const maxNodeID = 1023

// Flags builds a fresh flag set. urfave/cli stores env values into the flag
// structs, so they must not be shared between apps.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "listen-addr",
			Value:   ":7070",
			Usage:   "address to listen on for API",
			EnvVars: []string{"LISTEN_ADDR"},
		},
		&cli.StringFlag{
			Name:    "store-driver",
			Value:   sqldb.DriverSQLite,
			Usage:   "note store backend: 'sqlite', 'mysql' or 'mongo'",
			EnvVars: []string{"STORE_DRIVER"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "notes.db",
			Usage:   "sqlite file, mysql DSN (parseTime and UTC are forced) or mongodb:// URI depending on the driver",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "mongo-database",
			Value:   "notekeeper",
			Usage:   "database holding the notes collection (mongo only)",
			EnvVars: []string{"MONGO_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "auth-provider",
			Value:   ProviderFirebase,
			Usage:   "token verifier: 'firebase' (ID tokens), 'cognito' (pool ID tokens) or 'cognito-remote' (pool access tokens)",
			EnvVars: []string{"AUTH_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "firebase-project-id",
			Usage:   "Firebase project whose ID tokens are accepted",
			EnvVars: []string{"FIREBASE_PROJECT_ID"},
		},
		&cli.StringFlag{
			Name:    "cognito-region",
			Usage:   "AWS region of the Cognito user pool",
			EnvVars: []string{"AWS_COGNITO_REGION"},
		},
		&cli.StringFlag{
			Name:    "cognito-user-pool-id",
			Usage:   "Cognito user pool whose tokens are accepted",
			EnvVars: []string{"AWS_COGNITO_USER_POOL_ID"},
		},
		&cli.StringFlag{
			Name:    "cognito-client-id",
			Usage:   "app client ID expected in the 'aud' claim of ID tokens (optional)",
			EnvVars: []string{"AWS_COGNITO_CLIENT_ID"},
		},
		&cli.Int64Flag{
			Name:    "node-id",
			Value:   1,
			Usage:   "snowflake node ID, unique per running instance (0-1023)",
			EnvVars: []string{"NODE_ID"},
		},
		&cli.StringFlag{
			Name:    "body-limit",
			Value:   "1M",
			Usage:   "maximum request body size",
			EnvVars: []string{"BODY_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "read-timeout",
			Value:   60 * time.Second,
			EnvVars: []string{"READ_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "write-timeout",
			Value:   30 * time.Second,
			EnvVars: []string{"WRITE_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "shutdown-timeout",
			Value:   30 * time.Second,
			Usage:   "how long in-flight requests get to finish on shutdown",
			EnvVars: []string{"SHUTDOWN_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "drain-duration",
			Value:   0,
			Usage:   "how long /readyz reports not ready before the server stops",
			EnvVars: []string{"DRAIN_DURATION"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "one of 'debug', 'info', 'warn', 'error'",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Usage:   "allowed CORS origins, all when empty",
			EnvVars: []string{"CORS_ORIGINS"},
		},
	}
}

type AuthConfig struct {
	Provider          string
	FirebaseProjectID string
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string
}

type Config struct {
	ListenAddr  string
	Store       store.Config
	Auth        AuthConfig
	NodeID      int64
	BodyLimit   string
	LogLevel    string
	CORSOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DrainDuration   time.Duration
}

func FromCLI(cCtx *cli.Context) *Config {
	return &Config{
		ListenAddr: cCtx.String("listen-addr"),
		Store: store.Config{
			Driver:        strings.ToLower(cCtx.String("store-driver")),
			URL:           cCtx.String("database-url"),
			MongoDatabase: cCtx.String("mongo-database"),
		},
		Auth: AuthConfig{
			Provider:          strings.ToLower(cCtx.String("auth-provider")),
			FirebaseProjectID: cCtx.String("firebase-project-id"),
			CognitoRegion:     cCtx.String("cognito-region"),
			CognitoUserPoolID: cCtx.String("cognito-user-pool-id"),
			CognitoClientID:   cCtx.String("cognito-client-id"),
		},
		NodeID:          cCtx.Int64("node-id"),
		BodyLimit:       cCtx.String("body-limit"),
		LogLevel:        strings.ToLower(cCtx.String("log-level")),
		CORSOrigins:     cCtx.StringSlice("cors-origins"),
		ReadTimeout:     cCtx.Duration("read-timeout"),
		WriteTimeout:    cCtx.Duration("write-timeout"),
		ShutdownTimeout: cCtx.Duration("shutdown-timeout"),
		DrainDuration:   cCtx.Duration("drain-duration"),
	}
}

// Validate reports every problem at once so a bad deployment can be fixed in one go.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case sqldb.DriverSQLite, sqldb.DriverMySQL:
	case store.DriverMongo:
		if c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("mongo-database is required for the mongo store"))
		}
		if !strings.HasPrefix(c.Store.URL, "mongodb://") && !strings.HasPrefix(c.Store.URL, "mongodb+srv://") {
			errs = append(errs, errors.New("database-url must be a mongodb:// URI for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store-driver: %q", c.Store.Driver))
	}

	if c.Store.URL == "" {
		errs = append(errs, errors.New("database-url is required"))
	}

	switch c.Auth.Provider {
	case ProviderFirebase:
		if c.Auth.FirebaseProjectID == "" {
			errs = append(errs, errors.New("firebase-project-id is required for the firebase provider"))
		}
	case ProviderCognito:
		if c.Auth.CognitoRegion == "" || c.Auth.CognitoUserPoolID == "" {
			errs = append(errs, errors.New("cognito-region and cognito-user-pool-id are required for the cognito provider"))
		}
	case ProviderCognitoRemote:
		if c.Auth.CognitoRegion == "" {
			errs = append(errs, errors.New("cognito-region is required for the cognito-remote provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid auth-provider: %q", c.Auth.Provider))
	}

	if c.NodeID < 0 || c.NodeID > maxNodeID {
		errs = append(errs, fmt.Errorf("node-id must be between 0 and %d, got %d", maxNodeID, c.NodeID))
	}

	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		errs = append(errs, fmt.Errorf("invalid body-limit %q: %w", c.BodyLimit, err))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown-timeout must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) Level() (log.Lvl, error) {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG, nil
	case "info":
		return log.INFO, nil
	case "warn":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	}
	return log.OFF, fmt.Errorf("invalid log-level: %q", c.LogLevel)
}
