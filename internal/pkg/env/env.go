package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt64 reads an integer variable, falling back to def on absence or
// parse failure. Used for the paise price points.
func GetEnvInt64(key string, def int64) int64 {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid integer env value, using default")
		return def
	}
	return v
}

// GetEnvInt is GetEnvInt64 narrowed to int (day counts, ports).
func GetEnvInt(key string, def int) int {
	return int(GetEnvInt64(key, int64(def)))
}

// GetEnvDuration reads a time.Duration variable ("15s", "2m").
func GetEnvDuration(key string, def time.Duration) time.Duration {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid duration env value, using default")
		return def
	}
	return d
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/focusgate to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			// Successfully loaded env file
			return
		}
	}

	// Containers and CI inject variables directly; a missing file is fine.
	log.Warn("no .env file found, relying on process environment")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
