package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is prepended as the system message when the gateway
// runs in prompt mode and no SYSTEM_PROMPT is configured.
const DefaultSystemPrompt = "You are a friendly, concise support assistant embedded in a help widget. Answer in plain language and keep replies short."

type Config struct {
	ListenAddr string

	// Upstream completion service
	UpstreamProvider string // "openai" | "gemini"
	UpstreamBaseURL  string
	UpstreamAPIKey   string
	Model            string
	Temperature      float64
	MaxTokens        int
	RequestTimeout   time.Duration

	// Request shape: "messages" | "prompt"
	RequestMode  string
	SystemPrompt string

	// Origin gating
	AllowedOrigins        []string
	AllowedOriginSuffixes []string

	HeartbeatInterval time.Duration
}

func Load() *Config {
	// Load .env file if present; real env vars take precedence.
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.ListenAddr, "listen-addr", getEnv("LISTEN_ADDR", ":8080"), "Gateway listen address")
	flag.StringVar(&cfg.UpstreamProvider, "upstream-provider", getEnv("UPSTREAM_PROVIDER", "openai"), "Upstream completion provider: openai or gemini")
	flag.StringVar(&cfg.UpstreamBaseURL, "upstream-base-url", getEnv("UPSTREAM_BASE_URL", "https://api.openai.com"), "Base URL of the OpenAI-compatible upstream")
	flag.StringVar(&cfg.UpstreamAPIKey, "upstream-api-key", getEnv("UPSTREAM_API_KEY", ""), "Upstream API key (completion endpoints answer 500 until set)")
	flag.StringVar(&cfg.Model, "model", getEnv("MODEL", "gpt-4o-mini"), "Default model identifier")
	flag.Float64Var(&cfg.Temperature, "temperature", getEnvFloat("TEMPERATURE", 0.7), "Default sampling temperature")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", getEnvInt("MAX_TOKENS", 512), "Default max_tokens for completions")
	flag.StringVar(&cfg.RequestMode, "request-mode", getEnv("REQUEST_MODE", "messages"), "Accepted request shape: messages or prompt")
	flag.StringVar(&cfg.SystemPrompt, "system-prompt", getEnv("SYSTEM_PROMPT", DefaultSystemPrompt), "System preamble synthesized in prompt mode")

	var origins, suffixes string
	flag.StringVar(&origins, "allowed-origins", getEnv("ALLOWED_ORIGINS", ""), "Comma-separated exact origins allowed to embed the widget")
	flag.StringVar(&suffixes, "allowed-origin-suffixes", getEnv("ALLOWED_ORIGIN_SUFFIXES", ""), "Comma-separated host suffixes allowed to embed the widget (e.g. .zendesk.com)")

	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", getEnvDuration("REQUEST_TIMEOUT", 120*time.Second), "Upstream round-trip timeout for blocking requests")
	flag.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", getEnvDuration("HEARTBEAT_INTERVAL", 15*time.Second), "Interval between SSE keep-alive frames")

	flag.Parse()

	cfg.AllowedOrigins = splitCSV(origins)
	cfg.AllowedOriginSuffixes = splitCSV(suffixes)
	return cfg
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
