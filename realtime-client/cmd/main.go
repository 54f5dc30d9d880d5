// Command auction-live follows auction chats and bids in real time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/realtime-client/internal/relay"
	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/config"
	"github.com/aaronwang/auction-client/shared/logging"
)

var (
	configFile string
	verbose    bool

	cfg    *Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "auction-live <command>",
	Short:         "Follow auction chats and bids in real time",
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
			Service: "auction-live",
		})
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
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Config holds application configuration
type Config struct {
	APIBaseURL string
	ChatURL    string

	PollInterval         time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxAttempts int

	StatusAddr string

	NatsURL       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string
}

// loadConfig loads configuration from the environment, .env and the
// optional config file
func loadConfig() *Config {
	return &Config{
		APIBaseURL:           config.GetEnv("API_BASE_URL", "http://localhost:8081/api"),
		ChatURL:              config.GetEnv("CHAT_URL", "ws://localhost:8080/chat"),
		PollInterval:         config.GetEnvDuration("POLL_INTERVAL", 2*time.Second),
		ReconnectBaseDelay:   config.GetEnvDuration("RECONNECT_BASE_DELAY", 3*time.Second),
		ReconnectMaxAttempts: config.GetEnvInt("RECONNECT_MAX_ATTEMPTS", 5),
		StatusAddr:           config.GetEnv("STATUS_ADDR", ""),
		NatsURL:              config.GetEnv("NATS_URL", ""),
		RedisAddr:            config.GetEnv("REDIS_ADDR", ""),
		RedisPassword:        config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:              config.GetEnvInt("REDIS_DB", 0),
		LogLevel:             config.GetEnv("LOG_LEVEL", "info"),
		LogFormat:            config.GetEnv("LOG_FORMAT", "auto"),
	}
}

func newAPIClient() *api.Client {
	return api.NewClient(cfg.APIBaseURL, api.WithLogger(logger))
}

// newPublisher connects the configured buses. An unreachable bus is
// logged and skipped so chat keeps working without it.
func newPublisher() relay.Publisher {
	var pubs relay.Multi

	if cfg.NatsURL != "" {
		p, err := relay.NewNATSPublisher(cfg.NatsURL)
		if err != nil {
			logger.Warn().Err(err).Msg("NATS relay disabled")
		} else {
			logger.Info().Str("url", cfg.NatsURL).Msg("Relaying events to NATS")
			pubs = append(pubs, p)
		}
	}
	if cfg.RedisAddr != "" {
		p, err := relay.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis relay disabled")
		} else {
			logger.Info().Str("addr", cfg.RedisAddr).Msg("Relaying events to Redis")
			pubs = append(pubs, p)
		}
	}

	if len(pubs) == 0 {
		return relay.NoopPublisher{}
	}
	return pubs
}
