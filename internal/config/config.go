package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort         string
	AppEnv          string
	DBDriver        string
	DBDSN           string
	JWTSecret       string
	JWTExpiresMin   int
	RedisAddr       string
	RedisPassword   string
	CORSOrigins     string
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// Booking engine
	ExcludedPublicEmails []string
	DailyRequestLimit    int
	RequestWindow        time.Duration
	PublicFeedTopN       int
	SweepInterval        time.Duration
}

func Load() Config {
	expires := getInt("JWT_EXPIRES_MIN", 10080)
	return Config{
		AppPort:         get("APP_PORT", "8080"),
		AppEnv:          normalizeEnv(get("APP_ENV", "production")),
		DBDriver:        strings.ToLower(get("DB_DRIVER", "postgres")),
		DBDSN:           must("DB_DSN"),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		RedisAddr:       get("REDIS_ADDR", ""),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:5173, http://localhost:5173"),
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:5173"),

		ExcludedPublicEmails: getList("EXCLUDED_PUBLIC_EMAILS"),
		DailyRequestLimit:    getInt("DAILY_REQUEST_LIMIT", 3),
		RequestWindow:        time.Duration(getInt("REQUEST_WINDOW_HOURS", 24)) * time.Hour,
		PublicFeedTopN:       getInt("PUBLIC_FEED_TOP_N", 3),
		SweepInterval:        time.Duration(getInt("SWEEP_INTERVAL_MIN", 60)) * time.Minute,
	}
}

// GoogleEnabled is true when the OAuth client is fully configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != "" && c.GoogleRedirect != ""
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(get(k, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// getList splits a comma separated value; emails are lower-cased.
func getList(k string) []string {
	raw := get(k, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
