package dto

// ErrorResponse is the body of every failed request. Payment is set when the
// conflict is about an existing payment.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Payment *PaymentResponse `json:"payment,omitempty"`
}
