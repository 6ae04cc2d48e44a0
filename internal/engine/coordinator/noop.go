package coordinator

import (
	"context"

	"go.leadline.dev/loadstate/internal/core/ports"
)

// No-op collaborators used when a caller constructs the coordinator without
// logging, notification, or tracing wired up.

type noopLogger struct{}

func (noopLogger) Info(string) {}
func (noopLogger) Warn(string) {}
func (noopLogger) Error(error) {}

type noopNotifier struct{}

func (noopNotifier) Notify(ports.Notification) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                     {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) SetAttribute(string, any) {}
