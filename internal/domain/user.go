package domain

import "github.com/shopspring/decimal"

// UserProfile is a static, configuration-supplied account.
// Email is the login identity and the owner part of every RecordKey.
type UserProfile struct {
	Email        string
	Name         string
	PasswordHash string
	BaselineKM   decimal.Decimal
}
