package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"verbtutor/internal/tutor"
)

type Config struct {
	Port     string
	Env      string
	LogMode  string
	LLM      LLMConfig
	Tutor    tutor.Config
	Policy   string // optional YAML policy file
	Sessions SessionConfig
}

type LLMConfig struct {
	Provider string
	Model    string
	// APIKey overrides the provider's own key variable when set.
	APIKey string
	RPS    float64
	Burst  int
}

type SessionConfig struct {
	Max int
	TTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses flags from args and reads the rest from the environment.
func LoadArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tutor", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	provider := fs.String("provider", "", "generation provider (overrides LLM_PROVIDER)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	logMode := strings.TrimSpace(os.Getenv("LOG_MODE"))
	if logMode == "" {
		logMode = "dev"
		if !strings.EqualFold(env, "local") {
			logMode = "prod"
		}
	}

	p := &parser{}
	tc := tutor.DefaultConfig()
	if verbs := splitList(os.Getenv("TUTOR_ALLOWED_VERBS")); len(verbs) > 0 {
		tc.AllowedVerbs = verbs
	}
	tc.MaxRetries = p.intVar("TUTOR_MAX_RETRIES", tc.MaxRetries)
	tc.RequestTimeout = p.durationVar("TUTOR_REQUEST_TIMEOUT", tc.RequestTimeout)
	tc.TemperatureBase = p.floatVar("TUTOR_TEMPERATURE_BASE", tc.TemperatureBase)
	tc.TemperatureStep = p.floatVar("TUTOR_TEMPERATURE_STEP", tc.TemperatureStep)
	tc.MaxOutputTokens = p.intVar("TUTOR_MAX_OUTPUT_TOKENS", tc.MaxOutputTokens)

	cfg := &Config{
		Port:    *port,
		Env:     env,
		LogMode: logMode,
		LLM: LLMConfig{
			Provider: strings.ToLower(firstNonEmpty(strings.TrimSpace(*provider), strings.TrimSpace(os.Getenv("LLM_PROVIDER")), "openai")),
			Model:    strings.TrimSpace(os.Getenv("LLM_MODEL")),
			APIKey:   strings.TrimSpace(os.Getenv("LLM_API_KEY")),
			RPS:      p.floatVar("LLM_RPS", 0),
			Burst:    p.intVar("LLM_BURST", 1),
		},
		Tutor:  tc,
		Policy: strings.TrimSpace(os.Getenv("TUTOR_POLICY_FILE")),
		Sessions: SessionConfig{
			Max: p.intVar("SESSION_MAX", 1024),
			TTL: p.durationVar("SESSION_TTL", 2*time.Hour),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Tutor.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) intVar(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) floatVar(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ResolveAPIKey returns the key for a provider whose own variable is keyEnv.
func (c LLMConfig) ResolveAPIKey(keyEnv string) string {
	if c.APIKey != "" || keyEnv == "" {
		return c.APIKey
	}
	return strings.TrimSpace(os.Getenv(keyEnv))
}
