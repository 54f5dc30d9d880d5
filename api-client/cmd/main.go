// Command auctionctl manages auction accounts, listings, bids and
// notifications from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/api-client/internal/service"
	"github.com/aaronwang/auction-client/api-client/internal/session"
	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/config"
	"github.com/aaronwang/auction-client/shared/logging"
)

var (
	configFile string
	verbose    bool

	cfg    *Config
	logger zerolog.Logger

	store   session.Store
	current *session.Session
	client  *api.Client
)

var rootCmd = &cobra.Command{
	Use:           "auctionctl <command>",
	Short:         "Manage auction accounts, listings, bids and notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := config.LoadFile(configFile); err != nil {
				return err
			}
		}
		cfg = loadConfig()
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger = logging.New(&logging.Config{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  "stderr",
			Service: "auctionctl",
		})

		var err error
		store, err = newStore()
		if err != nil {
			return err
		}
		current, err = store.Load(cmd.Context())
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			logger.Warn().Err(err).Msg("Ignoring unreadable session")
		}

		client = api.NewClient(cfg.APIBaseURL,
			api.WithLogger(logger),
			api.WithTimeout(cfg.RequestTimeout),
			api.WithTokenSource(func() string {
				if current == nil {
					return ""
				}
				return current.Token
			}),
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if c, ok := store.(interface{ Close() error }); ok {
			return c.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// Config holds application configuration
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration

	SessionStore   string // "file" or "redis"
	SessionFile    string
	SessionProfile string
	SessionTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotificationInterval time.Duration

	LogLevel  string
	LogFormat string
}

// loadConfig loads configuration from the environment, .env and the
// optional config file
func loadConfig() *Config {
	return &Config{
		APIBaseURL:           config.GetEnv("API_BASE_URL", "http://localhost:8081/api"),
		RequestTimeout:       config.GetEnvDuration("REQUEST_TIMEOUT", api.DefaultTimeout),
		SessionStore:         config.GetEnv("SESSION_STORE", "file"),
		SessionFile:          config.GetEnv("SESSION_FILE", ""),
		SessionProfile:       config.GetEnv("SESSION_PROFILE", "default"),
		SessionTTL:           config.GetEnvDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:            config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:              config.GetEnvInt("REDIS_DB", 0),
		NotificationInterval: config.GetEnvDuration("NOTIFICATION_INTERVAL", service.DefaultNotificationInterval),
		LogLevel:             config.GetEnv("LOG_LEVEL", "warn"),
		LogFormat:            config.GetEnv("LOG_FORMAT", "auto"),
	}
}

func newStore() (session.Store, error) {
	switch cfg.SessionStore {
	case "", "file":
		return session.NewFileStore(cfg.SessionFile)
	case "redis":
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionProfile, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store %q (want file or redis)", cfg.SessionStore)
	}
}

// requireSession returns the logged-in session or a hint to log in
func requireSession() (*session.Session, error) {
	if current == nil {
		return nil, errors.New("not logged in; run 'auctionctl login' first")
	}
	return current, nil
}

// describe turns err into the text shown to the user
func describe(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, session.ErrNoSession):
		return "session expired; run 'auctionctl login' again"
	case errors.Is(err, api.ErrUnauthorized):
		return "not authorized: " + api.Message(err, "please log in again")
	case errors.Is(err, api.ErrUnsuccessful):
		return api.Message(err, err.Error())
	default:
		return err.Error()
	}
}
