package model

import "github.com/shopspring/decimal"

// AccountType is the unified category of an account. For the type-mix
// validation rule each type is its own broad family: SameFamily is true
// only when the two types are identical.
type AccountType string

const (
	AccountRevenue  AccountType = "Revenue"
	AccountExpense  AccountType = "Expense"
	AccountAsset    AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountOther    AccountType = "Other"
)

// SameFamily reports whether two account types belong to the same broad
// family for parent/child compatibility checks.
func SameFamily(a, b AccountType) bool {
	return a == b
}

// Account is a node in the per-source account forest.
type Account struct {
	AccountID       string      `json:"account_id"`
	Name            string      `json:"name"`
	AccountType     AccountType `json:"account_type"`
	ParentAccountID *string     `json:"parent_account_id,omitempty"`
	Source          Source      `json:"source"`
	Description     string      `json:"description"`
	IsActive        bool        `json:"is_active"`
}

// AccountValue is one account's contribution to one record.
type AccountValue struct {
	FinancialRecordID string          `json:"financial_record_id"`
	AccountID         string          `json:"account_id"`
	Value             decimal.Decimal `json:"value"`
}

// AccountNode is a hierarchy node returned by account_hierarchy: the
// account plus its children, expanded iteratively (no recursion) so that
// cyclic or very deep parent chains cannot blow the stack.
type AccountNode struct {
	Account  Account        `json:"account"`
	Children []*AccountNode `json:"children,omitempty"`
}
