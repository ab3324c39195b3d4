package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/service/customer"
)

const selectCustomers = `SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(place, ''),
	COALESCE(street_address, ''), COALESCE(city, ''), COALESCE(state, ''),
	COALESCE(postal_code, ''), COALESCE(country, ''), COALESCE(full_address, ''),
	COALESCE(notes, ''), created_at, updated_at
FROM customers`

var customerSearchColumns = []string{"name", "email", "phone", "place", "notes", "full_address"}

var customerOrderClauses = [...]string{
	customer.SortNewest:   "created_at DESC, id DESC",
	customer.SortOldest:   "created_at ASC, id ASC",
	customer.SortNameAsc:  "LOWER(name) ASC, id ASC",
	customer.SortNameDesc: "LOWER(name) DESC, id DESC",
}

// BuildCustomerQuery is the customer counterpart of BuildLeadQuery.
func BuildCustomerQuery(f customer.ListFilter) (string, []any) {
	q := selectCustomers
	var args []any
	if term := strings.TrimSpace(f.Search); term != "" {
		var cond string
		cond, args = containsAny(customerSearchColumns, term)
		q += "\nWHERE " + cond
	}
	order := customerOrderClauses[customer.SortNewest]
	if f.Sort >= 0 && int(f.Sort) < len(customerOrderClauses) {
		order = customerOrderClauses[f.Sort]
	}
	return q + "\nORDER BY " + order, args
}

// CustomerRepo implements customer.Repository.
type CustomerRepo struct{ db *database.DB }

// NewCustomerRepo creates a customer repository on db.
func NewCustomerRepo(db *database.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(selectCustomers+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) List(ctx context.Context, f customer.ListFilter) ([]domain.Customer, error) {
	q, args := BuildCustomerQuery(f)
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(`INSERT INTO customers
		(name, email, phone, place, street_address, city, state, postal_code, country, full_address,
		 notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		c.Name, database.NullString(c.Email), database.NullString(c.Phone), database.NullString(c.Place),
		database.NullString(c.Street), database.NullString(c.City), database.NullString(c.State),
		database.NullString(c.PostalCode), database.NullString(c.Country), database.NullString(c.FullAddress),
		database.NullString(c.Notes), database.FormatTime(c.CreatedAt), database.FormatTime(c.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

func (r *CustomerRepo) Update(ctx context.Context, id int64, u customer.UpdateFields, updatedAt time.Time) error {
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		col string
		val *string
	}{
		{"email", u.Email}, {"phone", u.Phone}, {"place", u.Place}, {"notes", u.Notes},
		{"street_address", u.Street}, {"city", u.City}, {"state", u.State},
		{"postal_code", u.PostalCode}, {"country", u.Country}, {"full_address", u.FullAddress},
	} {
		if f.val != nil {
			sets = append(sets, f.col+" = ?")
			args = append(args, database.NullString(*f.val))
		}
	}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, database.FormatTime(updatedAt), id)

	q := "UPDATE customers SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(`DELETE FROM activities WHERE customer_id = ?`), id); err != nil {
			return fmt.Errorf("delete customer activities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(`DELETE FROM customers WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		return nil
	})
}
