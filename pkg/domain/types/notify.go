package types

// Severity classifies a notification shown to the user
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// IsError reports whether the severity represents a failure
func (s Severity) IsError() bool {
	return s == SeverityError
}

// NotifyMode selects how upload outcomes are presented
type NotifyMode string

const (
	// NotifyModeBanner shows a non-blocking banner that dismisses itself
	NotifyModeBanner NotifyMode = "banner"
	// NotifyModeAlert shows a blocking alert that waits for acknowledgement
	NotifyModeAlert NotifyMode = "alert"
)

// String returns the string representation of the mode
func (m NotifyMode) String() string {
	return string(m)
}

// IsValid checks if the mode is supported
func (m NotifyMode) IsValid() bool {
	switch m {
	case NotifyModeBanner, NotifyModeAlert:
		return true
	default:
		return false
	}
}
