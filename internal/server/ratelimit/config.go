package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one path and method. A Path
// ending in "/" matches every path below it.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int // defaults to Limit
}

// LoadConfig reads RATE_LIMIT_* variables through getenv. analyzePerHour
// caps the analysis endpoints per client.
func LoadConfig(getenv func(string) string, analyzePerHour int) *Config {
	env := envReader(getenv)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         env.duration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(analyzePerHour),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits.
func DefaultEndpointConfigs(analyzePerHour int) []EndpointConfig {
	if analyzePerHour <= 0 {
		analyzePerHour = 10
	}
	burst := max(1, analyzePerHour/5)
	return []EndpointConfig{
		// model-backed
		{Path: "/resumes/analyze", Method: "POST", Limit: analyzePerHour, Window: time.Hour, Burst: burst},
		{Path: "/resumes/analyze/stream", Method: "POST", Limit: analyzePerHour, Window: time.Hour, Burst: burst},
		{Path: "/resumes/star", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/resumes/suggestions", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// credential and mail endpoints
		{Path: "/auth/login", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/auth/register", Method: "POST", Limit: 10, Window: time.Hour, Burst: 3},
		{Path: "/auth/verify/send", Method: "POST", Limit: 5, Window: time.Hour, Burst: 2},
		{Path: "/feedback", Method: "POST", Limit: 5, Window: time.Hour, Burst: 2},

		{Path: "/versions/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
