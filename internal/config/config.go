package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names. Embedding and chat provider selection is not
// here: the embedder and chat packages read their own SEMDEX_* variables so
// a model can be constructed from the environment without threading config
// through every caller.
const (
	EnvDBPath       = "SEMDEX_DB_PATH"
	EnvLogFile      = "SEMDEX_LOG_FILE"
	EnvLogLevel     = "SEMDEX_LOG_LEVEL"
	EnvPollInterval = "SEMDEX_POLL_INTERVAL"
	EnvIgnore       = "SEMDEX_IGNORE"
	EnvSummarize    = "SEMDEX_SUMMARIZE"
	EnvMaxTokens    = "SEMDEX_MAX_CHUNK_TOKENS"
	EnvOverlap      = "SEMDEX_CHUNK_OVERLAP_TOKENS"
)

// Config holds the server-level settings.
type Config struct {
	DB    DBConfig
	Log   LogConfig
	Watch WatchConfig
	Index IndexConfig
}

type DBConfig struct {
	Path string
}

type LogConfig struct {
	// FilePath enables the rotating log file when non-empty. Console output
	// always goes to stderr; stdout carries the MCP protocol.
	FilePath string
	Level    string
}

type WatchConfig struct {
	PollInterval time.Duration
	// Ignore lists extra directory or file names skipped while walking, on
	// top of the built-in set.
	Ignore []string
}

type IndexConfig struct {
	Summarize          bool
	MaxChunkTokens     int
	ChunkOverlapTokens int
}

// Load reads settings from a .env file when present, otherwise from the
// process environment. Malformed values fall back to their defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		DB: DBConfig{
			Path: getEnv(EnvDBPath, "~/.semdex/semdex.db"),
		},
		Log: LogConfig{
			FilePath: getEnv(EnvLogFile, ""),
			Level:    getEnv(EnvLogLevel, "info"),
		},
		Watch: WatchConfig{
			PollInterval: getEnvAsDuration(EnvPollInterval, 30*time.Second),
			Ignore:       getEnvAsSlice(EnvIgnore),
		},
		Index: IndexConfig{
			Summarize:          getEnvAsBool(EnvSummarize, false),
			MaxChunkTokens:     getEnvAsInt(EnvMaxTokens, 512),
			ChunkOverlapTokens: getEnvAsInt(EnvOverlap, 64),
		},
	}
}

// ExpandHome resolves a leading "~" to the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}

// getEnvAsSlice splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func getEnvAsSlice(key string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return nil
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
