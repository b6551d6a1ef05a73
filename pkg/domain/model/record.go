package model

import (
	"time"

	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

// User is a row imported from the users CSV
type User struct {
	ID        types.UserID `json:"id" firestore:"id"`
	Name      string       `json:"name" firestore:"name"`
	Email     string       `json:"email" firestore:"email"`
	CreatedAt time.Time    `json:"created_at" firestore:"created_at"`
}

// Product is a row imported from the products CSV
type Product struct {
	ID        types.ProductID `json:"id" firestore:"id"`
	Name      string          `json:"name" firestore:"name"`
	Price     float64         `json:"price" firestore:"price"`
	CreatedAt time.Time       `json:"created_at" firestore:"created_at"`
}

// Order is a row imported from the orders CSV
type Order struct {
	ID        types.OrderID   `json:"id" firestore:"id"`
	UserID    types.UserID    `json:"user_id" firestore:"user_id"`
	ProductID types.ProductID `json:"product_id" firestore:"product_id"`
	Quantity  int             `json:"quantity" firestore:"quantity"`
	CreatedAt time.Time       `json:"created_at" firestore:"created_at"`
}
