package components

import (
	"fmt"
	"strings"

	"github.com/agentbus-ledger/internal/domain/account"
)

// noteHints are checked in order; the first keyword starting a word of the name wins
var noteHints = []struct {
	keyword string
	hint    string
}{
	{"opening balance", "the offset of starting balances entered for new accounts"},
	{"petty cash", "small on-hand cash for incidental purchases"},
	{"cash", "cash on hand and in bank"},
	{"bank", "cash on hand and in bank"},
	{"receivable", "amounts owed by customers"},
	{"payable", "amounts owed to suppliers"},
	{"inventory", "goods held for sale"},
	{"depreciation", "allocated cost of long-lived assets"},
	{"equipment", "long-lived assets used in operations"},
	{"loan", "borrowed funds and their repayment"},
	{"payroll", "wages, salaries and related charges"},
	{"salar", "wages, salaries and related charges"},
	{"rent", "rent for premises and facilities"},
	{"utilit", "electricity, water and similar services"},
	{"tax", "taxes collected, owed or paid"},
	{"interest", "interest earned or incurred"},
	{"software", "software licences and subscriptions"},
	{"supplies", "consumable supplies"},
	{"travel", "business travel costs"},
	{"retained earnings", "accumulated profits kept in the business"},
}

var typeNoun = map[account.Type]string{
	account.TypeAsset:     "Asset",
	account.TypeLiability: "Liability",
	account.TypeEquity:    "Equity",
	account.TypeRevenue:   "Revenue",
	account.TypeExpense:   "Expense",
}

// DeriveNotes builds a short description for an account created without notes
func DeriveNotes(name string, t account.Type) string {
	noun, ok := typeNoun[t]
	if !ok {
		noun = "General"
	}
	padded := " " + strings.Join(strings.Fields(strings.ToLower(name)), " ")
	for _, h := range noteHints {
		if strings.Contains(padded, " "+h.keyword) {
			return fmt.Sprintf("%s account tracking %s.", noun, h.hint)
		}
	}
	return fmt.Sprintf("%s account for %s.", noun, strings.TrimSpace(name))
}
