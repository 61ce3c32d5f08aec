package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"jira-charts/internal/jira"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira            jira.Config
	MockFile        string
	DataPath        string
	LogDir          string
	ChartsDir       string
	HTTPAddr        string
	DefaultFilterID string
	CLMProject      string
	AnalysisCron    string
	AnalysisCronTZ  string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir), nil
}

// FromEnv builds the configuration from the process environment alone.
func FromEnv(exeDir string) *AppConfig {
	// 1. Resolve data paths
	dataPath := resolveDataPath(exeDir)
	logDir := ResolveLogDir(exeDir)
	chartsDir := getEnv("CHARTS_DIR", filepath.Join(dataPath, "jira_charts"))

	if err := os.MkdirAll(chartsDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", chartsDir).Msg("Failed to create charts directory")
	}

	// 2. Jira connection
	delaySecs := getEnvInt("JIRA_REQUEST_DELAY_SECONDS", 0)

	return &AppConfig{
		Jira: jira.Config{
			BaseURL:      getEnv("JIRA_URL", ""),
			XsrfToken:    getEnv("JIRA_XSRF_TOKEN", ""),
			SessionID:    getEnv("JIRA_SESSION_ID", ""),
			RememberMe:   getEnv("JIRA_REMEMBERME_COOKIE", ""),
			Token:        getEnv("JIRA_TOKEN", ""),
			GCILB:        getEnv("JIRA_GCILB", ""),
			GCLB:         getEnv("JIRA_GCLB", ""),
			RequestDelay: time.Duration(delaySecs) * time.Second,
			PageSize:     getEnvInt("JIRA_PAGE_SIZE", 100),
			Concurrency:  getEnvInt("JIRA_FETCH_CONCURRENCY", 4),
		},
		MockFile:        getEnv("JIRA_MOCK_FILE", ""),
		DataPath:        dataPath,
		LogDir:          logDir,
		ChartsDir:       chartsDir,
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DefaultFilterID: getEnv("DEFAULT_FILTER_ID", "114476"),
		CLMProject:      getEnv("CLM_PROJECT", "CLM"),
		AnalysisCron:    getEnv("ANALYSIS_CRON", ""),
		AnalysisCronTZ:  getEnv("ANALYSIS_CRON_TZ", ""),
	}
}

func resolveDataPath(exeDir string) string {
	if dataPath := os.Getenv("DATA_PATH"); dataPath != "" {
		return dataPath
	}
	if exeDir != "" {
		return exeDir
	}
	return "."
}

// ResolveLogDir returns LOGS_FOLDER, or the logs directory under the data path.
// The logger calls it before Load, so it reads the environment directly.
func ResolveLogDir(exeDir string) string {
	if logDir := os.Getenv("LOGS_FOLDER"); logDir != "" {
		return logDir
	}
	return filepath.Join(resolveDataPath(exeDir), "logs")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
	}
	return fallback
}
