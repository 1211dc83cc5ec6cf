package tutor

import (
	"errors"
	"fmt"
	"time"

	"verbtutor/internal/contract"
)

// maxTemperature caps the escalated sampling temperature.
const maxTemperature = 2.0

// Config is injected into every session.
type Config struct {
	AllowedVerbs    []string
	MaxRetries      int
	RequestTimeout  time.Duration
	TemperatureBase float64
	TemperatureStep float64
	MaxOutputTokens int
}

func DefaultConfig() Config {
	return Config{
		AllowedVerbs:    contract.DefaultPolicy().AllowedVerbs,
		MaxRetries:      5,
		RequestTimeout:  30 * time.Second,
		TemperatureBase: 0.7,
		TemperatureStep: 0.1,
		MaxOutputTokens: 500,
	}
}

func (c Config) Validate() error {
	var errs []error
	if len(c.AllowedVerbs) == 0 {
		errs = append(errs, errors.New("allowed verbs must not be empty"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max retries must be >= 1, got %d", c.MaxRetries))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.TemperatureBase < 0 || c.TemperatureBase > maxTemperature {
		errs = append(errs, fmt.Errorf("temperature base must be within [0, %.1f], got %v", maxTemperature, c.TemperatureBase))
	}
	if c.TemperatureStep < 0 {
		errs = append(errs, fmt.Errorf("temperature step must be >= 0, got %v", c.TemperatureStep))
	}
	if c.MaxOutputTokens < 0 {
		errs = append(errs, fmt.Errorf("max output tokens must be >= 0, got %d", c.MaxOutputTokens))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("tutor: invalid config: %w", err)
	}
	return nil
}

// temperature for the 1-based attempt n.
func (c Config) temperature(n int) float64 {
	t := c.TemperatureBase + c.TemperatureStep*float64(n-1)
	if t > maxTemperature {
		return maxTemperature
	}
	return t
}
