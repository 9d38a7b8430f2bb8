package serializer

import (
	"github.com/shopspring/decimal"

	"github.com/littlelemon/restaurant/internal/model"
)

// Menu wire field names.  FieldID is read-only.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldPrice     = "price"
	FieldInventory = "inventory"
)

// Menu is the wire representation of a menu item.  Price is rendered as
// a string with exactly two decimals.
type Menu struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Inventory int    `json:"inventory"`
}

// MenuData holds the validated writable fields present in an input.
type MenuData struct {
	Title     *string          `json:"title" validate:"omitnil,min=1,max=255"`
	Price     *decimal.Decimal `json:"price" validate:"-"`
	Inventory *int64           `json:"inventory" validate:"omitnil,gte=-2147483648,lte=2147483647"`
}

// MenuSerializer validates menu input and renders menu items.
type MenuSerializer struct{}

// Validate parses the menu fields of in according to mode.  A client
// supplied id is ignored.
func (MenuSerializer) Validate(in Input, mode Mode) (*MenuData, error) {
	errs := ValidationError{}
	switch mode {
	case Create:
		checkRequired(in, errs, FieldTitle, FieldPrice)
	case Update:
		checkRequired(in, errs, FieldTitle, FieldPrice, FieldInventory)
	}

	var data MenuData
	if raw, ok := in[FieldTitle]; ok {
		if s, msg := parseString(raw); msg != "" {
			errs.add(FieldTitle, msg)
		} else {
			data.Title = &s
		}
	}
	if raw, ok := in[FieldPrice]; ok {
		if d, msg := parseDecimal(raw, model.PriceMaxDigits, model.PriceDecimalPlaces); msg != "" {
			errs.add(FieldPrice, msg)
		} else {
			data.Price = &d
		}
	}
	if raw, ok := in[FieldInventory]; ok {
		if n, msg := parseInt(raw); msg != "" {
			errs.add(FieldInventory, msg)
		} else {
			data.Inventory = &n
		}
	}
	checkStruct(&data, errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Apply copies the present fields onto m.
func (d *MenuData) Apply(m *model.Menu) {
	if d.Title != nil {
		m.Title = *d.Title
	}
	if d.Price != nil {
		m.Price = *d.Price
	}
	if d.Inventory != nil {
		m.Inventory = int(*d.Inventory)
	}
}

// Represent renders m on the wire.
func (MenuSerializer) Represent(m *model.Menu) Menu {
	return Menu{
		ID:        m.ID,
		Title:     m.Title,
		Price:     m.Price.StringFixed(model.PriceDecimalPlaces),
		Inventory: m.Inventory,
	}
}
