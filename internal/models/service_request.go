package models

import "time"

// RequestStatus is the state of a proposal against a service.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// ServiceRequest is a proposal from a prospective provider to perform a
// service at a proposed value and date.
type ServiceRequest struct {
	ID            string        `json:"id"`
	Service       string        `json:"service"`
	Proposer      string        `json:"proposer"`
	ProposedValue float64       `json:"proposedValue"`
	ProposedDate  time.Time     `json:"proposedDate"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Resolution decisions accepted by the resolve endpoint.
const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)
