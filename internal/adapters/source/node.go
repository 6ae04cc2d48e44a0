package source

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the simulator Graft node.
const NodeID graft.ID = "adapter.source"

func init() {
	graft.Register(graft.Node[*Simulator]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Simulator, error) {
			return New(), nil
		},
	})
}
