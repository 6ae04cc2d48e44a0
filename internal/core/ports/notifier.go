package ports

// NotificationVariant selects the visual treatment of a notice.
type NotificationVariant string

const (
	// VariantInfo is an informational notice.
	VariantInfo NotificationVariant = "info"
	// VariantWarning flags a non-fatal problem, such as a partial batch
	// failure.
	VariantWarning NotificationVariant = "warning"
	// VariantError flags a load failure surfaced to the user.
	VariantError NotificationVariant = "error"
)

// Notification is the payload handed to the notification sink.
type Notification struct {
	Title       string
	Description string
	Variant     NotificationVariant
}

// Notifier is the toast/notice collaborator. It is fire-and-forget: the
// coordinator never waits on it and never depends on its outcome.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(n Notification)
}
