package config

// File represents the structure of the loadstate.yaml configuration file.
type File struct {
	Version        string        `yaml:"version"`
	StaleThreshold string        `yaml:"staleThreshold"`
	SweepInterval  string        `yaml:"sweepInterval"`
	Retry          *RetryDTO     `yaml:"retry"`
	Preload        *PreloadDTO   `yaml:"preload"`
	Sections       []*SectionDTO `yaml:"sections"`
}

// RetryDTO represents the retry policy block.
type RetryDTO struct {
	MaxRetries   *int   `yaml:"maxRetries"`
	InitialDelay string `yaml:"initialDelay"`
}

// PreloadDTO represents the preload scheduler block.
type PreloadDTO struct {
	Debounce   string      `yaml:"debounce"`
	EagerCount *int        `yaml:"eagerCount"`
	Panels     []*PanelDTO `yaml:"panels"`
}

// PanelDTO represents one deferred panel entry.
type PanelDTO struct {
	ID       string `yaml:"id"`
	Priority int    `yaml:"priority"`
}

// SectionDTO represents one dashboard section definition.
type SectionDTO struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Latency     string  `yaml:"latency"`
	FailureRate float64 `yaml:"failureRate"`
	Items       int     `yaml:"items"`
}
