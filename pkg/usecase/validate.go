package usecase

import (
	"fmt"
	"math"
	"strconv"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

func validateUsers(rows []csvRow) ([]*model.User, []string) {
	var (
		users  []*model.User
		errs   []string
		seenID = make(map[types.UserID]bool)
	)
	for _, row := range rows {
		id, name, email := row.get("id"), row.get("name"), row.get("email")
		if id == "" || name == "" || email == "" {
			errs = append(errs, fmt.Sprintf("Invalid user data: %s", row))
			continue
		}
		if seenID[types.UserID(id)] {
			errs = append(errs, fmt.Sprintf("User with id %s is duplicated in file. Skipping.", id))
			continue
		}
		seenID[types.UserID(id)] = true
		users = append(users, &model.User{
			ID:    types.UserID(id),
			Name:  name,
			Email: email,
		})
	}
	return users, errs
}

func validateProducts(rows []csvRow) ([]*model.Product, []string) {
	var (
		products []*model.Product
		errs     []string
		seenID   = make(map[types.ProductID]bool)
	)
	for _, row := range rows {
		id, name, rawPrice := row.get("id"), row.get("name"), row.get("price")
		if id == "" || name == "" || rawPrice == "" {
			errs = append(errs, fmt.Sprintf("Invalid product data: %s", row))
			continue
		}

		price, err := strconv.ParseFloat(rawPrice, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			errs = append(errs, fmt.Sprintf("Invalid price value: %s", row))
			continue
		}
		if price <= 0 {
			errs = append(errs, fmt.Sprintf("Product with id %s has invalid price: %s.", id, strconv.FormatFloat(price, 'f', -1, 64)))
			continue
		}

		if seenID[types.ProductID(id)] {
			errs = append(errs, fmt.Sprintf("Product with id %s is duplicated in file. Skipping.", id))
			continue
		}
		seenID[types.ProductID(id)] = true
		products = append(products, &model.Product{
			ID:    types.ProductID(id),
			Name:  name,
			Price: price,
		})
	}
	return products, errs
}

func validateOrders(rows []csvRow) ([]*model.Order, []string) {
	var (
		orders []*model.Order
		errs   []string
		seenID = make(map[types.OrderID]bool)
	)
	for _, row := range rows {
		id, userID, productID, rawQty := row.get("id"), row.get("user_id"), row.get("product_id"), row.get("quantity")
		if id == "" || userID == "" || productID == "" || rawQty == "" {
			errs = append(errs, fmt.Sprintf("Invalid order data: %s", row))
			continue
		}

		quantity, err := strconv.Atoi(rawQty)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Invalid quantity value: %s", row))
			continue
		}
		if quantity <= 0 {
			errs = append(errs, fmt.Sprintf("Order with id %s has invalid quantity: %d.", id, quantity))
			continue
		}

		if seenID[types.OrderID(id)] {
			errs = append(errs, fmt.Sprintf("Order with id %s is duplicated in file. Skipping.", id))
			continue
		}
		seenID[types.OrderID(id)] = true
		orders = append(orders, &model.Order{
			ID:        types.OrderID(id),
			UserID:    types.UserID(userID),
			ProductID: types.ProductID(productID),
			Quantity:  quantity,
		})
	}
	return orders, errs
}
