package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL   string
	StateDBPath  string
	SpoolDir     string
	CameraDir    string
	CameraFacing string
	LogLevel     string
	LogFile      string

	// Session lifetimes. Overridable for testing against short-lived
	// backends; the defaults match what the backend enforces.
	SiteSessionTTL  time.Duration
	AdminSessionTTL time.Duration
}

func Load() *Config {
	return &Config{
		APIBaseURL:      getEnv("STOCKPORT_API_URL", "http://localhost:3000"),
		StateDBPath:     getEnv("STOCKPORT_STATE_DB", defaultStatePath("stockport.db")),
		SpoolDir:        getEnv("STOCKPORT_SPOOL_DIR", defaultStatePath("spool")),
		CameraDir:       getEnv("STOCKPORT_CAMERA_DIR", ""),
		CameraFacing:    getEnv("STOCKPORT_CAMERA_FACING", "environment"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		SiteSessionTTL:  getDuration("STOCKPORT_SITE_SESSION_TTL", time.Hour),
		AdminSessionTTL: getDuration("STOCKPORT_ADMIN_SESSION_TTL", 6*time.Hour),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getDuration parses the env var as seconds, falling back to defaultVal on
// absence or a bad value.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	secs, err := strconv.Atoi(val)
	if err != nil || secs <= 0 {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

// defaultStatePath puts local state under the user config dir, falling back
// to the working directory when it cannot be determined.
func defaultStatePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return dir + string(os.PathSeparator) + "stockport" + string(os.PathSeparator) + name
}
