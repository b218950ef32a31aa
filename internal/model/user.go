// Package model holds the economy records owned by the store.
// Monetary values use shopspring/decimal, never float64.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// User is an account keyed by the player's stable id. Username may change.
type User struct {
	UUID     string          `json:"uuid"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

func NewUser(uuid, username string) User {
	return User{UUID: uuid, Username: username, Balance: decimal.Zero}
}

func UserKey(u User) string { return u.UUID }

func (u User) Validate() error {
	if strings.TrimSpace(u.UUID) == "" {
		return fmt.Errorf("user: empty uuid")
	}
	if u.Balance.IsNegative() {
		return fmt.Errorf("user %s: negative balance %s", u.UUID, u.Balance)
	}
	return nil
}
