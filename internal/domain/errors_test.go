package domain

import (
	"testing"
)

func TestErrNotFound_Error(t *testing.T) {
	err := &ErrNotFound{
		Entity: "subscription",
		ID:     "12345",
	}

	expected := "subscription not found with ID: 12345"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrInvalidSubscription_Error(t *testing.T) {
	err := &ErrInvalidSubscription{Reason: "target must use https"}

	expected := "invalid subscription: target must use https"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrImmutableAttempt_Error(t *testing.T) {
	err := &ErrImmutableAttempt{
		AttemptID:     "att-1",
		CurrentStatus: "successful",
	}

	expected := "delivery attempt att-1 already resolved as successful"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrForeignUnitOfWork_Error(t *testing.T) {
	err := &ErrForeignUnitOfWork{TxnID: "txn-1"}

	expected := "transaction txn-1 was joined by a different caller"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrDestinationRejected_Error(t *testing.T) {
	err := &ErrDestinationRejected{
		URL:    "http://example.com/hook",
		Reason: "scheme must be https",
	}

	expected := "destination rejected [http://example.com/hook]: scheme must be https"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrDialectNotFound_Error(t *testing.T) {
	named := &ErrDialectNotFound{ForType: "Order", EventType: "order.shipped", Name: "signed"}
	expectedNamed := `no dialect named "signed" for (Order, order.shipped)`
	if named.Error() != expectedNamed {
		t.Errorf("Expected error message '%s', got '%s'", expectedNamed, named.Error())
	}

	unnamed := &ErrDialectNotFound{ForType: "Order", EventType: "order.shipped"}
	expectedUnnamed := "no dialect for (Order, order.shipped)"
	if unnamed.Error() != expectedUnnamed {
		t.Errorf("Expected error message '%s', got '%s'", expectedUnnamed, unnamed.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("name is required")

	expected := "validation error: name is required"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestErrorTypeAssertion(t *testing.T) {
	var err error

	err = &ErrNotFound{Entity: "subscription", ID: "123"}
	if _, ok := err.(*ErrNotFound); !ok {
		t.Error("Type assertion for ErrNotFound failed")
	}

	err = &ErrImmutableAttempt{AttemptID: "456", CurrentStatus: "failed"}
	if _, ok := err.(*ErrImmutableAttempt); !ok {
		t.Error("Type assertion for ErrImmutableAttempt failed")
	}

	if _, ok := err.(*ErrNotFound); ok {
		t.Error("Type assertion incorrectly succeeded for wrong error type")
	}
}
