package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultAPIURL = "http://localhost:8080"

// Config is the CLI-side configuration, read from
// $XDG_CONFIG_HOME/packrat/config.yaml when present.
type Config struct {
	APIURL string `yaml:"api_url"`
}

// Load resolves the CLI configuration. Precedence: PACKRAT_API_URL env
// var, then the config file, then the default localhost URL.
func Load() Config {
	cfg := Config{APIURL: defaultAPIURL}

	if dir, err := configDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, "config.yaml")); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
			if cfg.APIURL == "" {
				cfg.APIURL = defaultAPIURL
			}
		}
	}

	if v := os.Getenv("PACKRAT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	return cfg
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "packrat"), nil
}

// ==========================
// Token storage
// ==========================

// TokenStore keeps the session token in the user config dir so CLI
// invocations share one login. Satisfies session.TokenStore.
type TokenStore struct{}

func tokenPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}

func (TokenStore) SaveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func (TokenStore) LoadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (TokenStore) ClearToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
