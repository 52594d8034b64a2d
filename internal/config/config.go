package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
)

// #region types
// ServerConfig configures the gRPC surface.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// StoreConfig points at the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// File is the full on-disk configuration.
type File struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Log      LogConfig       `yaml:"log"`
	Director director.Config `yaml:"director"`
}

// #endregion types

// #region defaults
// Default returns the configuration used when nothing is set.
func Default() File {
	return File{
		Server: ServerConfig{
			Addr:     "localhost:50061",
			TokenTTL: 12 * time.Hour,
		},
		Store:    StoreConfig{Path: "director.db"},
		Log:      LogConfig{Level: "info", Pretty: true},
		Director: director.DefaultConfig(),
	}
}

// #endregion defaults

// #region load
// Load layers defaults, the YAML file at path (skipped when empty), the
// .env files in envFiles (missing files are ignored) and DIRECTOR_*
// environment variables, in that order.
func Load(path string, envFiles ...string) (File, error) {
	f := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&f, os.Getenv); err != nil {
		return File{}, err
	}

	f.Director = f.Director.Normalize()
	return f, nil
}

// #endregion load

// #region env
func applyEnv(f *File, getenv func(string) string) error {
	f.Server.Addr = envOr(getenv, "DIRECTOR_ADDR", f.Server.Addr)
	f.Server.JWTSecret = envOr(getenv, "DIRECTOR_JWT_SECRET", f.Server.JWTSecret)
	f.Store.Path = envOr(getenv, "DIRECTOR_DB", f.Store.Path)
	f.Log.Level = envOr(getenv, "DIRECTOR_LOG_LEVEL", f.Log.Level)

	if v := getenv("DIRECTOR_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DIRECTOR_TOKEN_TTL: %w", err)
		}
		f.Server.TokenTTL = d
	}
	if v := getenv("DIRECTOR_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DIRECTOR_LOG_PRETTY: %w", err)
		}
		f.Log.Pretty = b
	}
	if v := getenv("DIRECTOR_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DIRECTOR_SEED: %w", err)
		}
		f.Director.Seed = n
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"DIRECTOR_TARGET_WIN_RATE", &f.Director.TargetWinRate},
		{"DIRECTOR_ERROR_RATE_TARGET", &f.Director.ErrorRateTarget},
		{"DIRECTOR_TURN_TIME_TARGET_MS", &f.Director.TurnTimeTargetMs},
		{"DIRECTOR_BASE_OPPONENT_DELAY_MS", &f.Director.BaseOpponentDelayMs},
	}
	for _, fl := range floats {
		v := getenv(fl.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", fl.key, err)
		}
		*fl.dst = x
	}
	return nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env
