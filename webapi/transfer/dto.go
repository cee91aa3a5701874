package transfer

// InternalTransferRequest moves funds between two of the caller's accounts.
type InternalTransferRequest struct {
	ToAccount string `json:"to_account" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

// ExternalTransferRequest sends funds to a named account of another user.
type ExternalTransferRequest struct {
	ToUsername           string `json:"to_username" validate:"required"`
	RecipientAccountName string `json:"recipient_account_name" validate:"required"`
	Amount               string `json:"amount" validate:"required"`
}
