// Package account models the chart of accounts and numeric code allocation.
package account

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is an account classification owning a code range
type Type string

const (
	TypeAsset     Type = "asset"
	TypeLiability Type = "liability"
	TypeEquity    Type = "equity"
	TypeRevenue   Type = "revenue"
	TypeExpense   Type = "expense"
)

// Common errors
var (
	ErrEmptyName = errors.New("account name cannot be empty")
)

// Account is one entry of an owner's chart of accounts
type Account struct {
	ID          int64     `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Type        Type      `json:"accountType"`
	Notes       string    `json:"notes"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAccount builds an active account after validating name and type
func NewAccount(ownerUserID, name string, t Type, code int, notes string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	r, err := RangeFor(t)
	if err != nil {
		return nil, err
	}
	if !r.Contains(code) {
		return nil, fmt.Errorf("code %d is outside the %s range %d-%d", code, t, r.Start, r.End)
	}
	return &Account{
		OwnerUserID: ownerUserID,
		Code:        strconv.Itoa(code),
		Name:        name,
		Type:        t,
		Notes:       notes,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}, nil
}

// IsDebitNormal reports whether increases to the account are debits
func (t Type) IsDebitNormal() bool {
	return t == TypeAsset || t == TypeExpense
}

var typeAliases = map[string]Type{
	"asset":              TypeAsset,
	"assets":             TypeAsset,
	"current asset":      TypeAsset,
	"fixed asset":        TypeAsset,
	"liability":          TypeLiability,
	"liabilities":        TypeLiability,
	"current liability":  TypeLiability,
	"equity":             TypeEquity,
	"owner's equity":     TypeEquity,
	"capital":            TypeEquity,
	"revenue":            TypeRevenue,
	"revenues":           TypeRevenue,
	"income":             TypeRevenue,
	"sales":              TypeRevenue,
	"expense":            TypeExpense,
	"expenses":           TypeExpense,
	"cost":               TypeExpense,
	"cost of goods sold": TypeExpense,
	"operating expense":  TypeExpense,
	"operating expenses": TypeExpense,
}

// ParseType maps a free-form type name to a Type, case-insensitively
func ParseType(s string) (Type, error) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", ErrUnknownAccountType{Type: s}
}
