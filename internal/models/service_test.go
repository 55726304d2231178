package models

import "testing"

func TestValidServiceTransition(t *testing.T) {
	allowed := []struct{ from, to ServiceStatus }{
		{ServiceOpen, ServiceAccepted},
		{ServiceOpen, ServiceCanceled},
		{ServiceAccepted, ServiceCompleted},
		{ServiceAccepted, ServiceCanceled},
	}
	for _, tr := range allowed {
		if !ValidServiceTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	statuses := []ServiceStatus{ServiceOpen, ServiceAccepted, ServiceCompleted, ServiceCanceled}
	allowedSet := map[[2]ServiceStatus]bool{}
	for _, tr := range allowed {
		allowedSet[[2]ServiceStatus{tr.from, tr.to}] = true
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if allowedSet[[2]ServiceStatus{from, to}] {
				continue
			}
			if ValidServiceTransition(from, to) {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestValidServiceStatus(t *testing.T) {
	for _, s := range []ServiceStatus{ServiceOpen, ServiceAccepted, ServiceCompleted, ServiceCanceled} {
		if !ValidServiceStatus(s) {
			t.Errorf("%s should be a known status", s)
		}
	}
	if ValidServiceStatus("pending") {
		t.Error("pending is a request status, not a service status")
	}
	if ValidServiceStatus("") {
		t.Error("empty status should be rejected")
	}
}

func TestValidServiceType(t *testing.T) {
	if !ValidServiceType("plumber") || !ValidServiceType("auto repair") {
		t.Error("known categories rejected")
	}
	if ValidServiceType("carpentry") {
		t.Error("unknown category accepted")
	}
}

func TestValidPaymentTransition(t *testing.T) {
	if !ValidPaymentTransition(PaymentPending, PaymentCompleted) {
		t.Error("pending -> completed should be allowed")
	}
	if !ValidPaymentTransition(PaymentPending, PaymentFailed) {
		t.Error("pending -> failed should be allowed")
	}
	if ValidPaymentTransition(PaymentCompleted, PaymentFailed) {
		t.Error("completed payments must not change")
	}
	if ValidPaymentTransition(PaymentPending, PaymentPending) {
		t.Error("pending -> pending is not a transition")
	}
}

func TestAddressValidate(t *testing.T) {
	full := Address{
		Street: "Rua das Flores", City: "Curitiba", State: "PR",
		PostalCode: "80010-000", Country: "BR", Number: "101",
	}
	if err := full.Validate(); err != nil {
		t.Fatalf("complete address rejected: %v", err)
	}

	missing := full
	missing.City = ""
	missing.Number = " "
	err := missing.Validate()
	if err == nil {
		t.Fatal("incomplete address accepted")
	}
	fieldErr, ok := err.(*FieldError)
	if !ok {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if len(fieldErr.Fields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", fieldErr.Fields)
	}
}
