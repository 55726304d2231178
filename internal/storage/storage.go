package storage

import (
	"context"
	"errors"

	"github.com/servigo/servigo/internal/models"
)

// Sentinel errors shared by every store. Handlers translate these into HTTP
// statuses; implementations wrap them with entity context via fmt.Errorf.
var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken indicates a uniqueness conflict on users.email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden indicates the actor lacks permission for the operation.
	ErrForbidden = errors.New("actor not permitted")

	// ErrConflict indicates a concurrent transition won the race.
	ErrConflict = errors.New("conflicting concurrent update")
)

// UserStore captures user persistence needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserRole(ctx context.Context, id, role string) error
}

// ServiceDetails carries the editable descriptive fields of a service.
// Nil pointers leave the current value untouched.
type ServiceDetails struct {
	Name        *string
	Description *string
	Value       *float64
}

// ServiceStore owns service records and their status field. Transition is a
// compare-and-swap: it only succeeds when the row is still in `from`.
type ServiceStore interface {
	CreateService(ctx context.Context, svc models.Service) (models.Service, error)
	GetService(ctx context.Context, id string) (models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	UpdateServiceDetails(ctx context.Context, id string, det ServiceDetails) (models.Service, error)

	// TransitionService moves the service from -> to, setting accepted_by
	// when acceptedBy is non-nil and clearing it when the move re-opens or
	// cancels from open. Returns ErrConflict when the row was no longer in
	// `from`, ErrNotFound when id does not resolve.
	TransitionService(ctx context.Context, id string, from, to models.ServiceStatus, acceptedBy *string) (models.Service, error)
}

// RequestStore owns service requests. AcceptRequest applies the whole accept
// outcome atomically: the request becomes accepted, all sibling pending
// requests are declined, and the service moves open -> accepted with
// accepted_by set to the proposer. Exactly one of two racing accepts commits.
type RequestStore interface {
	CreateRequest(ctx context.Context, req models.ServiceRequest) (models.ServiceRequest, error)
	GetRequest(ctx context.Context, id string) (models.ServiceRequest, error)
	ListRequestsByService(ctx context.Context, serviceID string) ([]models.ServiceRequest, error)
	FindPendingRequest(ctx context.Context, serviceID, proposerID string) (models.ServiceRequest, error)

	AcceptRequest(ctx context.Context, id string) (models.ServiceRequest, models.Service, error)
	DeclineRequest(ctx context.Context, id string) (models.ServiceRequest, error)
}

// PaymentStore owns payment records; status only changes via the webhook.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)

	// ResolvePaymentByProviderID moves the payment identified by the
	// gateway reference out of pending. Non-pending rows yield ErrConflict.
	ResolvePaymentByProviderID(ctx context.Context, providerRef string, to models.PaymentStatus) (models.Payment, error)
}

// Stats aggregates counts for the admin dashboard.
type Stats struct {
	Users           int64 `json:"users"`
	Services        int64 `json:"services"`
	OpenServices    int64 `json:"open_services"`
	ServiceRequests int64 `json:"service_requests"`
	Payments        int64 `json:"payments"`
	PendingPayments int64 `json:"pending_payments"`
}

// StatsStore serves the admin dashboard aggregates.
type StatsStore interface {
	CollectStats(ctx context.Context) (Stats, error)
}
