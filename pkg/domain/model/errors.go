package model

import "github.com/m-mizutani/goerr/v2"

// Error tags for domain operations
var (
	// ErrTagNotFound marks lookups of records that do not exist
	ErrTagNotFound = goerr.NewTag("not_found")
	// ErrTagInvalidCSV marks an uploaded file that could not be read as CSV
	ErrTagInvalidCSV = goerr.NewTag("invalid_csv")
)
