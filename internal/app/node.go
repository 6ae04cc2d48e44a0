package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.leadline.dev/loadstate/internal/adapters/config"
	"go.leadline.dev/loadstate/internal/adapters/logger"
	"go.leadline.dev/loadstate/internal/adapters/notify"
	"go.leadline.dev/loadstate/internal/adapters/source"
	"go.leadline.dev/loadstate/internal/adapters/telemetry"
	"go.leadline.dev/loadstate/internal/adapters/watcher"
	"go.leadline.dev/loadstate/internal/core/ports"
)

// NodeID is the unique identifier for the application components Graft node.
const NodeID graft.ID = "app.components"

// Components bundles the constructed application with the collaborators the
// CLI layer needs direct access to.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			config.NodeID,
			notify.NodeID,
			telemetry.NodeID,
			watcher.NodeID,
			source.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			lg, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			notifier, err := graft.Dep[ports.Notifier](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			configWatcher, err := graft.Dep[ports.ConfigWatcher](ctx)
			if err != nil {
				return nil, err
			}
			sources, err := graft.Dep[*source.Simulator](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{
				App:    New(loader, lg, notifier, tracer, configWatcher, sources),
				Logger: lg,
			}, nil
		},
	})
}
