package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/and161185/relay-loadgen/internal/errs"
)

// Defaults applied by New.
const (
	DefaultBreakerFailures = 5
	DefaultDrainTimeout    = 2 * time.Second
)

// Config describes one load run.
type Config struct {
	RelayURL        string
	VirtualUsers    int
	Iterations      int           // per virtual user; 0 = until Duration or cancellation
	Duration        time.Duration // 0 = no limit
	Rate            float64       // iterations per second per virtual user; 0 = unlimited
	Burst           int
	PublishRatio    float64 // share of iterations that publish, the rest subscribe
	ReadResponses   bool    // count OK/EOSE/NOTICE/CLOSED replies
	BreakerFailures uint32  // consecutive send failures before a virtual user gives up
	DrainTimeout    time.Duration
}

// Validate checks ranges. Validation rules:
// - RelayURL not empty
// - VirtualUsers > 0
// - Iterations, Duration, Rate, DrainTimeout >= 0
// - PublishRatio in [0, 1]
func (c Config) Validate() error {
	var problems []error
	if c.RelayURL == "" {
		problems = append(problems, errors.New("validation: empty relay url"))
	}
	if c.VirtualUsers <= 0 {
		problems = append(problems, fmt.Errorf("validation: virtual users must be > 0, got %d", c.VirtualUsers))
	}
	if c.Iterations < 0 {
		problems = append(problems, fmt.Errorf("validation: negative iterations %d", c.Iterations))
	}
	if c.Duration < 0 {
		problems = append(problems, fmt.Errorf("validation: negative duration %s", c.Duration))
	}
	if c.Rate < 0 {
		problems = append(problems, fmt.Errorf("validation: negative rate %v", c.Rate))
	}
	if c.PublishRatio < 0 || c.PublishRatio > 1 {
		problems = append(problems, fmt.Errorf("validation: publish ratio %v outside [0,1]", c.PublishRatio))
	}
	if c.DrainTimeout < 0 {
		problems = append(problems, fmt.Errorf("validation: negative drain timeout %s", c.DrainTimeout))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, errors.Join(problems...))
}
