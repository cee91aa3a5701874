package account

// AmountRequest is the body of deposits and withdrawals. The amount is a
// decimal string with at most two fractional digits, e.g. "250" or "6.39".
type AmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}
