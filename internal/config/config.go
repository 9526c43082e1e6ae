// Package config loads SpecFusion configuration from the environment.
//
// A .env file in the working directory is honored when present, so local
// development does not require exporting adapter credentials by hand.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPort       = 3456
	DefaultDBPath     = "./data/specfusion.db"
	DefaultAdminToken = "dev-token"
)

// Config is the resolved process configuration.
type Config struct {
	// Port is the HTTP listen port for the query server.
	Port int

	// DBPath is the SQLite database file path.
	DBPath string

	// AdminToken is the Bearer token required on /api/admin routes.
	// Sites must override the default in production.
	AdminToken string

	// UserDictPath is the tokenizer user dictionary. Empty means resolve
	// userdict.txt relative to the binary.
	UserDictPath string

	// APIURL is the server base URL used by the sync CLI.
	APIURL string

	// WecomCookies holds raw cookies for the Wecom adapter.
	WecomCookies string

	// WecomCookieFile is where interactively captured Wecom cookies are
	// persisted between runs.
	WecomCookieFile string

	// PDDCookie and PDDJSONPath configure the Pinduoduo adapter.
	PDDCookie   string
	PDDJSONPath string
}

// Load reads configuration from the environment, applying defaults.
// A .env file is loaded first when present; explicit environment variables
// win over .env entries.
func Load() (*Config, error) {
	// Ignore a missing .env; it is optional.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            DefaultPort,
		DBPath:          envOr("DB_PATH", DefaultDBPath),
		AdminToken:      envOr("ADMIN_TOKEN", DefaultAdminToken),
		UserDictPath:    os.Getenv("USERDICT_PATH"),
		APIURL:          envOr("SPECFUSION_API_URL", fmt.Sprintf("http://localhost:%d", DefaultPort)),
		WecomCookies:    os.Getenv("WECOM_COOKIES"),
		WecomCookieFile: envOr("WECOM_COOKIE_FILE", "./data/wecom_cookies.json"),
		PDDCookie:       os.Getenv("PDD_COOKIE"),
		PDDJSONPath:     os.Getenv("PDD_JSON_PATH"),
	}

	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Port = n
	}

	return cfg, nil
}

// ResolveUserDict returns the user dictionary path, falling back to
// userdict.txt next to the running binary.
func (c *Config) ResolveUserDict() string {
	if c.UserDictPath != "" {
		return c.UserDictPath
	}
	exe, err := os.Executable()
	if err != nil {
		return "userdict.txt"
	}
	return filepath.Join(filepath.Dir(exe), "userdict.txt")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
