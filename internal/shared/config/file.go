package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config for the optional TOML file. Durations are strings
// such as "10m".
type fileConfig struct {
	Port             string   `toml:"port"`
	Env              string   `toml:"env"`
	DatabaseURL      string   `toml:"database_url"`
	CORSAllowOrigins []string `toml:"cors_allow_origins"`
	JWTSecret        string   `toml:"jwt_secret"`
	JWTTTL           string   `toml:"jwt_ttl"`
	BcryptCost       int      `toml:"bcrypt_cost"`
	LogLevel         string   `toml:"log_level"`
	Processing       struct {
		URL     string `toml:"url"`
		Timeout string `toml:"timeout"`
	} `toml:"processing"`
	RateLimit struct {
		Enabled      *bool   `toml:"enabled"`
		DefaultRate  float64 `toml:"default_rate"`
		DefaultBurst int     `toml:"default_burst"`
		UploadRate   float64 `toml:"upload_rate"`
		UploadBurst  int     `toml:"upload_burst"`
		AskRate      float64 `toml:"ask_rate"`
		AskBurst     int     `toml:"ask_burst"`
	} `toml:"rate_limit"`
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, fmt.Errorf("config file %s not found", path)
		}
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fc, fmt.Errorf("parse config file %s:%d:%d: %s", path, row, col, decodeErr.Error())
		}
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}
