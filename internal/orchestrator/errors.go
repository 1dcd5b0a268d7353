package orchestrator

import "fmt"

// ValidationError rejects a checkout request before any external call is
// made. Handlers map it to 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid checkout request: " + e.Reason
}

// OrderCreationError means the ticketing backend refused or failed the
// local order create. No payment attempt was made, so there is nothing to
// compensate. Handlers map it to 502.
type OrderCreationError struct {
	Err error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Err)
}

func (e *OrderCreationError) Unwrap() error {
	return e.Err
}

// PaymentInitError means the processor order or checkout session could
// not be created. The local order stays pending for the expiry sweeper to
// clean up. Handlers map it to 502.
type PaymentInitError struct {
	Step string
	Err  error
}

func (e *PaymentInitError) Error() string {
	return fmt.Sprintf("payment initialization failed at %s: %v", e.Step, e.Err)
}

func (e *PaymentInitError) Unwrap() error {
	return e.Err
}
