package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds engine configuration
type Config struct {
	Port   string
	DBPath string

	// Session tokens issued by the external auth provider
	JWTSecret string

	// External collaborators
	PlacesAPIBaseURL string
	VisitsAPIBaseURL string

	// Stay detection
	ProximityRadiusMeters float64
	EvaluationInterval    time.Duration
	MinDwell              time.Duration
	MaxDwell              time.Duration

	// Check-in validation
	HardRadiusMeters float64
}

// Load loads configuration from environment variables, with a best-effort
// .env file load first
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", ":8080"),
		DBPath:                getEnv("DB_PATH", "./data/engine/cache.db"),
		JWTSecret:             getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		PlacesAPIBaseURL:      getEnv("PLACES_API_URL", "http://localhost:8000/api/v1"),
		VisitsAPIBaseURL:      getEnv("VISITS_API_URL", "http://localhost:8000/api/v1"),
		ProximityRadiusMeters: getEnvFloat("PROXIMITY_RADIUS_M", 100),
		EvaluationInterval:    getEnvDuration("EVALUATION_INTERVAL", 30*time.Second),
		MinDwell:              getEnvDuration("MIN_DWELL", 3*time.Minute),
		MaxDwell:              getEnvDuration("MAX_DWELL", 2*time.Hour),
		HardRadiusMeters:      getEnvFloat("HARD_RADIUS_M", 50),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
