// Package config resolves settings for every service from, in order:
// process environment, a .env file in the working directory, and an
// optional YAML/TOML/JSON config file named by AUCTION_CONFIG.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	v    *viper.Viper
	once sync.Once
	mu   sync.RWMutex
)

func store() *viper.Viper {
	once.Do(func() {
		// A missing .env is normal; anything else is worth surfacing.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
		}

		v = viper.New()
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

		if path := os.Getenv("AUCTION_CONFIG"); path != "" {
			if err := loadFile(v, path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	})
	return v
}

func loadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// LoadFile reads settings from a config file, replacing any file loaded
// before. Environment variables keep precedence over file values.
func LoadFile(path string) error {
	s := store()
	mu.Lock()
	defer mu.Unlock()
	return loadFile(s, path)
}

func lookup(key string) (string, bool) {
	s := store()
	mu.RLock()
	defer mu.RUnlock()
	if !s.IsSet(key) {
		return "", false
	}
	val := strings.TrimSpace(s.GetString(key))
	return val, val != ""
}

// GetEnv returns the value for key or fallback when unset or empty
func GetEnv(key, fallback string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return fallback
}

// GetEnvInt returns the integer value for key or fallback when unset or invalid
func GetEnvInt(key string, fallback int) int {
	val, ok := lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s=%q is not an integer, using %d\n", key, val, fallback)
		return fallback
	}
	return n
}

// GetEnvDuration returns the duration for key or fallback when unset or invalid.
// Bare integers are read as milliseconds.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := lookup(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	fmt.Fprintf(os.Stderr, "Warning: %s=%q is not a duration, using %s\n", key, val, fallback)
	return fallback
}

// GetEnvBool returns the boolean value for key or fallback when unset or invalid
func GetEnvBool(key string, fallback bool) bool {
	val, ok := lookup(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
