package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price precision of the `menu.price` DECIMAL(10,2) column.
const (
	PriceMaxDigits     = 10
	PriceDecimalPlaces = 2
)

// Menu represents a dish or drink in the `menu` table.
//
// Fields:
//  ID        – primary key identifier, assigned by the store.
//  Title     – display name of the item.
//  Price     – fixed-point price with two decimal places.
//  Inventory – units in stock.
type Menu struct {
	ID        uint64          // menu.id
	Title     string          // menu.title
	Price     decimal.Decimal // menu.price
	Inventory int             // menu.inventory
}

// NewMenu returns a menu item carrying the model defaults.
func NewMenu() *Menu {
	return &Menu{Inventory: DefaultInventory}
}

// String renders the admin label "title: $price".
func (m Menu) String() string {
	return fmt.Sprintf("%s: $%s", m.Title, m.Price.StringFixed(PriceDecimalPlaces))
}
