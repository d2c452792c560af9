package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the settings for the API client and local token storage.
type Config struct {
	APIBaseURL   string        `yaml:"api_base_url" env:"AUTHCORE_API_URL" env-default:"http://localhost:8080"`
	LoginPath    string        `yaml:"login_path" env:"AUTHCORE_LOGIN_PATH" env-default:"/auth/login"`
	RefreshPath  string        `yaml:"refresh_path" env:"AUTHCORE_REFRESH_PATH" env-default:"/auth/refresh"`
	IdentityPath string        `yaml:"identity_path" env:"AUTHCORE_IDENTITY_PATH" env-default:"/auth/me"`
	LogoutPath   string        `yaml:"logout_path" env:"AUTHCORE_LOGOUT_PATH" env-default:"/auth/logout"`
	HTTPTimeout  time.Duration `yaml:"http_timeout" env:"AUTHCORE_HTTP_TIMEOUT" env-default:"30s"`
	ExpiryBuffer time.Duration `yaml:"expiry_buffer" env:"AUTHCORE_EXPIRY_BUFFER" env-default:"1m"`
	DatabasePath string        `yaml:"database_path" env:"AUTHCORE_DB_PATH"`
}

// Load reads configuration from the given YAML file, falling back to
// environment variables and defaults when path is empty.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabasePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		cfg.DatabasePath = filepath.Join(home, ".authcore", "tokens.db")
	}
	return &cfg, nil
}
