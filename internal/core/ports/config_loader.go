package ports

import "go.leadline.dev/loadstate/internal/core/domain"

// ConfigLoader loads the engine configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load searches for a configuration file starting at cwd and walking
	// up, and returns the parsed configuration with defaults applied.
	Load(cwd string) (*domain.Config, error)

	// Path returns the path of the file the last Load call resolved,
	// empty if Load has not succeeded yet. The watcher uses it to follow
	// the active file.
	Path() string
}
