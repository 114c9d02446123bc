package idl

import (
	"github.com/code-payments/code-idl/pkg/idl/schema"
	"github.com/code-payments/code-idl/pkg/idl/value"
)

// AccountResult is a decoded account
type AccountResult struct {
	Name   string           `json:"name"`
	Schema schema.Type      `json:"schema"`
	Value  value.TypedValue `json:"value"`
}

// InstructionResult is a decoded instruction. Accounts holds one role name per
// supplied account address, and AccountAddresses maps those names back to the
// addresses.
type InstructionResult struct {
	Name             string            `json:"name"`
	Schema           schema.Type       `json:"schema"`
	Accounts         []string          `json:"accounts"`
	Value            value.TypedValue  `json:"value"`
	AccountAddresses map[string]string `json:"account_addresses,omitempty"`
}
