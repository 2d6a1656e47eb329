package models

// PushPaymentRequest asks the provider to prompt the applicant's phone.
type PushPaymentRequest struct {
	Phone          string `json:"phone"`
	Amount         int    `json:"amount"`
	ApplicationRef string `json:"applicationRef"`
}

// PushPaymentResult is the provider's acknowledgement of a push request.
type PushPaymentResult struct {
	CheckoutRequestID string   `json:"checkoutRequestId"`
	Instructions      []string `json:"instructions"`
}

// VerifyPaymentRequest checks a receipt code against a push request.
type VerifyPaymentRequest struct {
	ApplicationRef    string `json:"applicationRef"`
	ReceiptCode       string `json:"receiptCode"`
	CheckoutRequestID string `json:"checkoutRequestId,omitempty"`
}
