package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/littlelemon/restaurant/internal/model"
)

// MenuRepo encapsulates all database queries related to menu items.
type MenuRepo struct {
	db *sql.DB
}

func NewMenuRepo(db *sql.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

const menuColumns = "id, title, price, inventory"

func scanMenu(row rowScanner) (*model.Menu, error) {
	m := new(model.Menu)
	if err := row.Scan(&m.ID, &m.Title, &m.Price, &m.Inventory); err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts m and populates its ID.
func (r *MenuRepo) Create(ctx context.Context, m *model.Menu) error {
	const q = "INSERT INTO menu (title, price, inventory) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Price, m.Inventory)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	m.ID = uint64(id)
	return nil
}

// GetByID fetches a menu item or returns ErrNotFound.
func (r *MenuRepo) GetByID(ctx context.Context, id uint64) (*model.Menu, error) {
	const q = "SELECT " + menuColumns + " FROM menu WHERE id = ?"
	m, err := scanMenu(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu item %d: %w", id, err)
	}
	return m, nil
}

// List returns every menu item in insertion order.
func (r *MenuRepo) List(ctx context.Context) ([]*model.Menu, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menu ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	var out []*model.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	return out, nil
}

// Update locks the menu row, lets mutate change it and writes every
// column back in the same transaction.
func (r *MenuRepo) Update(ctx context.Context, id uint64, mutate func(*model.Menu) error) (m *model.Menu, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			m, err = nil, fmt.Errorf("commit: %w", cerr)
		}
	}()

	const qSelect = "SELECT " + menuColumns + " FROM menu WHERE id = ? FOR UPDATE"
	m, err = scanMenu(tx.QueryRowContext(ctx, qSelect, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock menu item %d: %w", id, err)
	}
	if err = mutate(m); err != nil {
		return nil, err
	}
	m.ID = id

	const qUpdate = "UPDATE menu SET title = ?, price = ?, inventory = ? WHERE id = ?"
	if _, err = tx.ExecContext(ctx, qUpdate, m.Title, m.Price, m.Inventory, id); err != nil {
		return nil, fmt.Errorf("update menu item %d: %w", id, err)
	}
	return m, nil
}

// Delete removes a menu item or returns ErrNotFound.
func (r *MenuRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM menu WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
