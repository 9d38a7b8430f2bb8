package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/metrics"
	"github.com/littlelemon/restaurant/internal/model"
	"github.com/littlelemon/restaurant/internal/serializer"
)

const resourceMenu = "menu"

// MenuStore is the persistence the menu endpoints need.
type MenuStore interface {
	Create(ctx context.Context, m *model.Menu) error
	GetByID(ctx context.Context, id uint64) (*model.Menu, error)
	List(ctx context.Context) ([]*model.Menu, error)
	Update(ctx context.Context, id uint64, mutate func(*model.Menu) error) (*model.Menu, error)
	Delete(ctx context.Context, id uint64) error
}

// MenuHandler serves /api/menu-items.
type MenuHandler struct {
	Store   MenuStore
	Metrics *metrics.Metrics
	ser     serializer.MenuSerializer
}

func NewMenuHandler(store MenuStore, m *metrics.Metrics) *MenuHandler {
	if store == nil {
		panic("nil store passed to NewMenuHandler")
	}
	return &MenuHandler{Store: store, Metrics: m}
}

// List handles GET /api/menu-items.
func (h *MenuHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Store.List(ctx)
	if err != nil {
		return respondError(c, "list menu", err)
	}
	return c.JSON(http.StatusOK, serializer.Many(items, h.ser.Represent))
}

// Create handles POST /api/menu-items.
func (h *MenuHandler) Create(c echo.Context) error {
	in, err := bindInput(c)
	if err != nil {
		return respondError(c, "read body", err)
	}
	data, err := h.ser.Validate(in, serializer.Create)
	if err != nil {
		return respondError(c, "validate", err)
	}
	m := model.NewMenu()
	data.Apply(m)

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Store.Create(ctx, m); err != nil {
		return respondError(c, "create menu item", err)
	}
	h.Metrics.Created(resourceMenu)
	return c.JSON(http.StatusCreated, h.ser.Represent(m))
}

// Retrieve handles GET /api/menu-items/:id.
func (h *MenuHandler) Retrieve(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return respondError(c, "get menu item", err)
	}
	return c.JSON(http.StatusOK, h.ser.Represent(m))
}

// Update handles PUT /api/menu-items/:id; every writable field is required.
func (h *MenuHandler) Update(c echo.Context) error { return h.update(c, serializer.Update) }

// PartialUpdate handles PATCH /api/menu-items/:id.
func (h *MenuHandler) PartialUpdate(c echo.Context) error { return h.update(c, serializer.Partial) }

func (h *MenuHandler) update(c echo.Context, mode serializer.Mode) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	in, err := bindInput(c)
	if err != nil {
		return respondError(c, "read body", err)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	m, err := h.Store.Update(ctx, id, func(m *model.Menu) error {
		data, err := h.ser.Validate(in, mode)
		if err != nil {
			return err
		}
		data.Apply(m)
		return nil
	})
	if err != nil {
		return respondError(c, "update menu item", err)
	}
	return c.JSON(http.StatusOK, h.ser.Represent(m))
}

// Destroy handles DELETE /api/menu-items/:id.
func (h *MenuHandler) Destroy(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Store.Delete(ctx, id); err != nil {
		return respondError(c, "delete menu item", err)
	}
	h.Metrics.Deleted(resourceMenu)
	return c.NoContent(http.StatusNoContent)
}
