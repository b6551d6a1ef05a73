package interfaces

import (
	"context"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
)

// Form gives the upload handler access to the inputs of the upload form
type Form interface {
	// File returns the file selected in the named file input, or nil if none
	File(input string) *model.Attachment
	// Value returns the value of the named (hidden) input
	Value(input string) string
}

// Loader is the busy indicator shown while an upload is in flight
type Loader interface {
	Show()
	Hide()
}

// Notifier presents the outcome of a submission
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Alerter shows a blocking message that must be acknowledged
type Alerter interface {
	Alert(ctx context.Context, message string)
}
