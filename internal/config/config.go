package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ProfilesDir string
	TargetsDir  string
	RunsDBPath  string
	RunsDBDSN   string
	LogLevel    string
	BindAddr    string
	Threads     int
	Consistency string
}

// Load reads CQLSTRESS_* variables. A .env file in the working directory is
// applied first; variables already present in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ProfilesDir: getEnv("CQLSTRESS_PROFILES_DIR", "./profiles"),
		TargetsDir:  getEnv("CQLSTRESS_TARGETS_DIR", "./targets"),
		RunsDBPath:  getEnv("CQLSTRESS_RUNS_DB", "./cqlstress-runs.sqlite"),
		RunsDBDSN:   getEnv("CQLSTRESS_DB", ""),
		LogLevel:    getEnv("CQLSTRESS_LOG_LEVEL", "info"),
		BindAddr:    getEnv("CQLSTRESS_BIND_ADDR", ":8080"),
		Threads:     getEnvInt("CQLSTRESS_THREADS", 4),
		Consistency: getEnv("CQLSTRESS_CONSISTENCY", "LOCAL_ONE"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
