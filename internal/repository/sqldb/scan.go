package sqldb

import (
	"database/sql"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		l                domain.Lead
		source, status   string
		created, updated sql.NullString
	)
	err := row.Scan(
		&l.ID, &l.RefNumber, &l.Name, &l.Email, &l.Phone,
		&l.Place, &source, &l.Owner, &status,
		&l.Value, &l.Tags, &l.Notes,
		&l.PreferredDate, &l.PreferredTime,
		&l.Street, &l.City, &l.State,
		&l.PostalCode, &l.Country, &l.FullAddress,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	l.Source = domain.LeadSource(source)
	l.Status = domain.LeadStatus(status)
	l.CreatedAt = database.ParseNullTime(created)
	l.UpdatedAt = database.ParseNullTime(updated)
	return &l, nil
}

func collectLeads(rows *sql.Rows) ([]domain.Lead, error) {
	defer rows.Close()
	out := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c                domain.Customer
		created, updated sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Place,
		&c.Street, &c.City, &c.State, &c.PostalCode, &c.Country, &c.FullAddress,
		&c.Notes, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = database.ParseNullTime(created)
	c.UpdatedAt = database.ParseNullTime(updated)
	return &c, nil
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var (
		a                  domain.Activity
		leadID, customerID sql.NullInt64
		kind               string
		occurred, created  sql.NullString
	)
	if err := row.Scan(&a.ID, &leadID, &customerID, &kind, &a.Subject, &a.Details, &occurred, &created); err != nil {
		return nil, err
	}
	a.LeadID = database.Int64Ptr(leadID)
	a.CustomerID = database.Int64Ptr(customerID)
	a.Kind = domain.ActivityKind(kind)
	a.OccurredAt = database.ParseNullTime(occurred)
	a.CreatedAt = database.ParseNullTime(created)
	return &a, nil
}
