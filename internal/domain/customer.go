package domain

import "time"

// Customer is a converted account. It has no structural link to Lead; the two
// only meet in the activity log.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Place string `json:"place"`
	Address
	FullAddress string    `json:"full_address"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
