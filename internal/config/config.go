package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	JWTSecret      string
	AllowedUserIDs []uint64

	// Location is the default zone for users without a timezone setting.
	Location *time.Location

	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string

	// ImageDir is the repo-relative prefix for uploaded image blobs.
	ImageDir string
	// JournalLabel is attached to every published record and excluded
	// from user tags.
	JournalLabel string
	// RetentionDays > 0 enables the automatic post-merge retention sweep.
	RetentionDays int

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		JWTSecret:            mustGetenv("JWT_SECRET"),
		GitHubToken:          mustGetenv("GITHUB_TOKEN"),
		GitHubOwner:          mustGetenv("GITHUB_OWNER"),
		GitHubRepo:           mustGetenv("GITHUB_REPO"),
		GitHubBranch:         getenv("GITHUB_BRANCH", "main"),
		ImageDir:             getenv("IMAGE_DIR", "images"),
		JournalLabel:         getenv("JOURNAL_LABEL", "journal"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	for _, raw := range strings.Split(getenv("ALLOWED_USER_IDS", ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("bad ALLOWED_USER_IDS entry %q: %w", raw, err)
		}
		cfg.AllowedUserIDs = append(cfg.AllowedUserIDs, id)
	}

	tz := getenv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("bad TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if raw := getenv("RETENTION_DAYS", ""); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return cfg, fmt.Errorf("bad RETENTION_DAYS %q", raw)
		}
		cfg.RetentionDays = days
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

// Allowed reports whether a user may use the bot. An empty list admits
// everyone (single-owner deployments often skip it).
func (c Config) Allowed(userID uint64) bool {
	if len(c.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
