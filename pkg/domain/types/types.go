package types

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID represents a user identifier taken from the users CSV
type UserID string

// String returns the string representation
func (id UserID) String() string {
	return string(id)
}

// ProductID represents a product identifier taken from the products CSV
type ProductID string

// String returns the string representation
func (id ProductID) String() string {
	return string(id)
}

// OrderID represents an order identifier taken from the orders CSV
type OrderID string

// String returns the string representation
func (id OrderID) String() string {
	return string(id)
}

// ImportID identifies one upload processed by the server
type ImportID string

// String returns the string representation
func (id ImportID) String() string {
	return string(id)
}

// NewImportID creates a new ImportID
func NewImportID() ImportID {
	return ImportID(fmt.Sprintf("imp-%s", uuid.New().String()))
}
