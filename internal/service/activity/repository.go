package activity

import (
	"context"

	"github.com/ignite/leadbook/internal/domain"
)

// Repository defines the data access contract for activities.
type Repository interface {
	Create(ctx context.Context, a *domain.Activity) (int64, error)

	// ListForLead and ListForCustomer return entries newest first.
	ListForLead(ctx context.Context, leadID int64) ([]domain.Activity, error)
	ListForCustomer(ctx context.Context, customerID int64) ([]domain.Activity, error)

	// Delete removes one entry; a missing id is a no-op.
	Delete(ctx context.Context, id int64) error

	LeadExists(ctx context.Context, id int64) (bool, error)
	CustomerExists(ctx context.Context, id int64) (bool, error)
}
