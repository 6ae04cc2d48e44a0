// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.leadline.dev/loadstate/internal/adapters/config"
	_ "go.leadline.dev/loadstate/internal/adapters/logger"
	_ "go.leadline.dev/loadstate/internal/adapters/notify"
	_ "go.leadline.dev/loadstate/internal/adapters/source"
	_ "go.leadline.dev/loadstate/internal/adapters/telemetry"
	_ "go.leadline.dev/loadstate/internal/adapters/watcher"
	// Register app nodes.
	_ "go.leadline.dev/loadstate/internal/app"
)
