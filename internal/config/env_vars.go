package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar  = "APP_NAME"
	baseURLVar  = "CARPOOL_BASE_URL"
	logLevelVar = "LOG_LEVEL"
	timeoutVar  = "CARPOOL_REQUEST_TIMEOUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Carpool")
}

// GetBaseURL returns the origin the client talks to (e.g., "https://carpool.example.com").
// REST, websocket and static asset URLs are all derived from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:3000"), "/")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetRequestTimeout() string {
	return GetEnv(timeoutVar, "15s")
}

// RequestTimeout parses GetRequestTimeout, falling back to 15 seconds.
func RequestTimeout(c EnvConfig) time.Duration {
	return GetEnvDuration(c.GetRequestTimeout(), 15*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvList(envVar string, defaultValue []string) []string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvFloat(envVar string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(envVar), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a duration string, returning defaultValue when it is empty or invalid.
func GetEnvDuration(raw string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
