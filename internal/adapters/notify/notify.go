// Package notify implements the notification sink for terminal sessions.
package notify

import (
	"io"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/ui/output"
	"go.leadline.dev/loadstate/internal/ui/style"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier renders notices as colored lines on stderr, the terminal
// equivalent of the dashboard's toast popups.
type Notifier struct {
	mu  sync.Mutex
	out *termenv.Output
}

// New creates a Notifier writing to stderr.
func New() *Notifier {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a Notifier writing to w.
func NewWithWriter(w io.Writer) *Notifier {
	return &Notifier{out: output.New(w)}
}

// Notify renders one notice. It never blocks on anything but the write and
// swallows write errors; notices are a side channel.
func (n *Notifier) Notify(notice ports.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	icon, color := variantStyle(notice.Variant)

	line := n.out.String(icon + " " + notice.Title).Foreground(color).Bold().String()
	if notice.Description != "" {
		line += " " + n.out.String(notice.Description).Foreground(termenv.RGBColor(string(style.Smoke))).String()
	}
	_, _ = n.out.WriteString(line + "\n")
}

func variantStyle(v ports.NotificationVariant) (string, termenv.Color) {
	switch v {
	case ports.VariantWarning:
		return style.Warning, termenv.RGBColor(string(style.Amber))
	case ports.VariantError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	default:
		return style.Dot, termenv.RGBColor(string(style.Indigo))
	}
}
