package types

import (
	"context"
)

const (
	MethodInitConnect     = "InitConnect"
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
)

// IProviderHandler is implemented by whatever holds the wallet on the bridge side.
type IProviderHandler interface {
	// Accounts returns the accounts already authorized, without prompting.
	Accounts(ctx context.Context) ([]string, error)
	// RequestAccounts prompts the user for authorization.
	RequestAccounts(ctx context.Context) ([]string, error)
}

// IAccountsNotifier is optionally implemented by an IProviderHandler that can report account
// changes on its own.
type IAccountsNotifier interface {
	OnAccountsChanged(func(accounts []string))
}
