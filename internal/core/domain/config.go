package domain

import "time"

// ConfigFileName is the configuration file the loader searches for,
// walking up from the working directory.
const ConfigFileName = "loadstate.yaml"

// Defaults applied when the configuration omits a field.
const (
	DefaultStaleThreshold = 10 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = time.Second
	DefaultDebounce       = 200 * time.Millisecond
	DefaultEagerPreloads  = 2
)

// SectionSpec declares one dashboard section and the shape of its simulated
// source. The real product supplies loaders per section; the demo CLI
// synthesizes them from these parameters.
type SectionSpec struct {
	ID   string
	Name string

	// Latency is the simulated fetch duration for the demo source.
	Latency time.Duration

	// FailureRate is the probability in [0,1] that a simulated fetch
	// rejects.
	FailureRate float64

	// Items is the number of synthetic records the demo source returns.
	Items int
}

// PreloadConfig configures the preload scheduler.
type PreloadConfig struct {
	// Debounce is the hover-intent debounce window.
	Debounce time.Duration

	// EagerCount is how many of the highest-priority panels are preloaded
	// immediately.
	EagerCount int

	Panels []PreloadEntry
}

// Config is the engine configuration assembled by the config adapter.
type Config struct {
	StaleThreshold time.Duration
	SweepInterval  time.Duration
	Retry          RetryPolicy
	Preload        PreloadConfig
	Sections       []SectionSpec
}

// Section returns the spec for the given id, if declared.
func (c *Config) Section(id string) (SectionSpec, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionSpec{}, false
}
