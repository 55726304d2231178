package models

import "time"

// PaymentStatus mirrors the gateway-facing payment states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one payment attempt for a service. Status moves out of
// pending only through the gateway webhook.
type Payment struct {
	ID                string        `json:"id"`
	Service           string        `json:"service"`
	Customer          string        `json:"customer"`
	Provider          string        `json:"provider"`
	Amount            float64       `json:"amount"`
	PaymentMethod     string        `json:"paymentMethod,omitempty"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	PaymentProviderID string        `json:"paymentProviderId,omitempty"`
	PaymentDate       time.Time     `json:"paymentDate"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ValidPaymentTransition reports whether a webhook may move from -> to.
func ValidPaymentTransition(from, to PaymentStatus) bool {
	if from != PaymentPending {
		return false
	}
	return to == PaymentCompleted || to == PaymentFailed
}
