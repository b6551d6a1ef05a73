package model

import (
	"fmt"
	"io"
	"time"

	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

// ImportCompletedMessage is returned in the message field of every processed upload
const ImportCompletedMessage = "Process completed."

// ImportFiles are the three uploaded CSV files
type ImportFiles struct {
	Users    io.Reader
	Products io.Reader
	Orders   io.Reader
}

// ImportReport collects per-file row errors of one import
type ImportReport struct {
	UsersErrors    []string `json:"users_errors"`
	ProductsErrors []string `json:"products_errors"`
	OrdersErrors   []string `json:"orders_errors"`
}

// NewImportReport creates a report with empty, non-nil error lists
func NewImportReport() *ImportReport {
	return &ImportReport{
		UsersErrors:    []string{},
		ProductsErrors: []string{},
		OrdersErrors:   []string{},
	}
}

// ImportResult is the outcome of processing one upload on the server
type ImportResult struct {
	ID         types.ImportID
	Report     *ImportReport
	Error      string
	Users      int
	Products   int
	Orders     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// TransactionFailed formats the error text for a failed orders transaction
func TransactionFailed(cause error) string {
	return fmt.Sprintf("%s: %s", TransactionFailedMarker, cause.Error())
}

// Summary returns a one-line description suitable for chat notifications
func (r *ImportResult) Summary() string {
	status := "completed"
	if r.Error != "" {
		status = "failed"
	}
	errCount := len(r.Report.UsersErrors) + len(r.Report.ProductsErrors) + len(r.Report.OrdersErrors)
	return fmt.Sprintf("CSV import %s %s: %d users, %d products, %d orders created, %d row errors",
		r.ID, status, r.Users, r.Products, r.Orders, errCount)
}

// UploadResponse is the JSON body returned by the upload endpoint
type UploadResponse struct {
	Message string        `json:"message,omitempty"`
	Details *ImportReport `json:"details,omitempty"`
	Error   string        `json:"error,omitempty"`
}
