package watcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.leadline.dev/loadstate/internal/core/ports"
)

// NodeID is the unique identifier for the config watcher Graft node.
const NodeID graft.ID = "adapter.watcher"

func init() {
	graft.Register(graft.Node[ports.ConfigWatcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ConfigWatcher, error) {
			return NewWatcher()
		},
	})
}
