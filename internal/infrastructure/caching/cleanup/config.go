package cleanup

import (
	"time"

	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// Config holds sweeper configuration, sourced from the central config package.
type Config struct {
	SweepInterval    time.Duration
	VerboseReporting bool
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		SweepInterval:    config.SweepInterval,
		VerboseReporting: config.DevMode,
	}
}
