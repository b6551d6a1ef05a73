package model

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

// Multipart part names expected by the upload endpoint
const (
	PartUsers    = "users"
	PartOrders   = "orders"
	PartProducts = "products"
)

// TransactionFailedMarker is the text the server puts in the error field when
// the orders transaction could not be committed. Detection is a substring
// match on server wording; there is no structured error code.
const TransactionFailedMarker = "Transaction failed"

// UnknownErrorMessage is shown when a failed response carries no error text
const UnknownErrorMessage = "An unknown error occurred."

// Attachment is a file selected for upload
type Attachment struct {
	FileName string
	open     func() (io.ReadCloser, error)
}

// NewAttachment creates an attachment whose content is produced by open
func NewAttachment(fileName string, open func() (io.ReadCloser, error)) *Attachment {
	return &Attachment{FileName: fileName, open: open}
}

// NewFileAttachment creates an attachment backed by a file on disk
func NewFileAttachment(path string) *Attachment {
	return &Attachment{
		FileName: filepath.Base(path),
		open: func() (io.ReadCloser, error) {
			return os.Open(path) // #nosec G304 path is chosen by the operator
		},
	}
}

// NewBytesAttachment creates an attachment with in-memory content
func NewBytesAttachment(fileName string, data []byte) *Attachment {
	return &Attachment{
		FileName: fileName,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Open returns a reader for the attachment content
func (a *Attachment) Open() (io.ReadCloser, error) {
	return a.open()
}

// UploadRequest holds everything sent in one upload
type UploadRequest struct {
	Users     *Attachment
	Orders    *Attachment
	Products  *Attachment
	CSRFToken string
}

// Part pairs a multipart part name with its attachment
type Part struct {
	Name       string
	Attachment *Attachment
}

// Parts returns the attachments keyed by multipart part name, in send order
func (r *UploadRequest) Parts() []Part {
	return []Part{
		{PartUsers, r.Users},
		{PartOrders, r.Orders},
		{PartProducts, r.Products},
	}
}

// UploadResult is the decoded server response for one upload
type UploadResult struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the HTTP status was in the 2xx range
func (r *UploadResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// IsTransactionFailure reports whether a 2xx response signals a failed commit
func (r *UploadResult) IsTransactionFailure() bool {
	return r.Error != "" && strings.Contains(r.Error, TransactionFailedMarker)
}

// Outcome classifies how one submission ended
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeServerError        Outcome = "server_error"
	OutcomeTransactionFailure Outcome = "transaction_failure"
	OutcomeTransportError     Outcome = "transport_error"
)

// Severity returns the notification severity for the outcome
func (o Outcome) Severity() types.Severity {
	if o == OutcomeSuccess {
		return types.SeveritySuccess
	}
	return types.SeverityError
}

// Notification is the message rendered for one submission outcome
type Notification struct {
	Outcome  Outcome
	Severity types.Severity
	Text     string
}

// NewNotification builds a notification for the outcome
func NewNotification(outcome Outcome, text string) Notification {
	return Notification{
		Outcome:  outcome,
		Severity: outcome.Severity(),
		Text:     text,
	}
}

// Classify maps a decoded response to a notification
func (r *UploadResult) Classify() Notification {
	if !r.OK() {
		msg := r.Error
		if msg == "" {
			msg = UnknownErrorMessage
		}
		return NewNotification(OutcomeServerError, "Error: "+msg)
	}

	if r.IsTransactionFailure() {
		return NewNotification(OutcomeTransactionFailure, "Transaction Failed: "+r.Error)
	}

	return NewNotification(OutcomeSuccess, "Success: "+r.Message)
}

// TransportFailure builds the notification for a failed call or undecodable body
func TransportFailure(err error) Notification {
	return NewNotification(OutcomeTransportError, "An error occurred: "+err.Error())
}
