package models

import "time"

// ServiceStatus is the lifecycle state of a listed service.
type ServiceStatus string

const (
	ServiceOpen      ServiceStatus = "open"
	ServiceAccepted  ServiceStatus = "accepted"
	ServiceCompleted ServiceStatus = "completed"
	ServiceCanceled  ServiceStatus = "canceled"
)

// ServiceTypes is the fixed set of service categories.
var ServiceTypes = []string{
	"plumber", "TI", "cleaning", "transport", "administrative",
	"auto repair", "repair", "wellness", "animal",
}

// ValidServiceType reports whether t is one of the known categories.
func ValidServiceType(t string) bool {
	for _, s := range ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// MaxServiceImages caps the number of images attached to a service.
const MaxServiceImages = 10

// Service is a unit of work offered by a creator at an asking value,
// open to proposals until accepted, completed, or canceled.
type Service struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Value         float64       `json:"value"`
	ProposedValue *float64      `json:"proposedValue,omitempty"`
	Location      Address       `json:"location"`
	ServiceType   string        `json:"serviceType"`
	Creator       string        `json:"creator"`
	Status        ServiceStatus `json:"status"`
	AcceptedBy    *string       `json:"acceptedBy,omitempty"`
	Images        []string      `json:"images"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// serviceTransitions enumerates every legal status move. Accepting is only
// reachable through the negotiation accept path, which also sets AcceptedBy.
var serviceTransitions = map[ServiceStatus][]ServiceStatus{
	ServiceOpen:     {ServiceAccepted, ServiceCanceled},
	ServiceAccepted: {ServiceCompleted, ServiceCanceled},
}

// ValidServiceTransition reports whether from -> to is an allowed move.
func ValidServiceTransition(from, to ServiceStatus) bool {
	for _, next := range serviceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidServiceStatus reports whether s names a known status.
func ValidServiceStatus(s ServiceStatus) bool {
	switch s {
	case ServiceOpen, ServiceAccepted, ServiceCompleted, ServiceCanceled:
		return true
	}
	return false
}
