package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	OTPTTL      time.Duration
	RedisURL    string
	CORSOrigins []string
	LogMode     string

	APIBaseURL string
	Lang       string
	TokenFile  string
}

// Load reads an optional .env file and then the environment. A missing .env
// is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Addr:        getEnv("ADDR", ":8080"),
		DBPath:      getEnv("DB_PATH", "lessons.db"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:    getDuration("TOKEN_TTL", 24*time.Hour),
		OTPTTL:      getDuration("OTP_TTL", 120*time.Second),
		RedisURL:    getEnv("REDIS_URL", ""),
		CORSOrigins: getList("CORS_ORIGINS", []string{"*"}),
		LogMode:     getEnv("LOG_MODE", "development"),
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Lang:        getEnv("LANG", "ru"),
		TokenFile:   getEnv("TOKEN_FILE", defaultTokenFile()),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lesson-quiz-token"
	}
	return dir + string(os.PathSeparator) + "lesson-quiz" + string(os.PathSeparator) + "token"
}
