package testhelper

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs-force-community/rebalance-gateway/types"
)

var (
	_ types.IProviderHandler  = (*MemProvider)(nil)
	_ types.IAccountsNotifier = (*MemProvider)(nil)
)

// MemProvider is an in-memory injected provider. Accounts are only visible to the origin after
// it was authorized, like a browser extension does it.
type MemProvider struct {
	lk         sync.Mutex
	accounts   []string
	authorized bool
	reject     bool
	fail       bool
	handlers   []func([]string)
}

func NewMemProvider(accounts ...string) *MemProvider {
	return &MemProvider{
		lk:       sync.Mutex{},
		accounts: accounts,
	}
}

func (m *MemProvider) SetFail(ctx context.Context, fail bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.fail = fail
}

// SetReject makes the next prompts fail as if the user declined them.
func (m *MemProvider) SetReject(ctx context.Context, reject bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.reject = reject
}

func (m *MemProvider) SetAuthorized(ctx context.Context, authorized bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.authorized = authorized
}

// SetAccounts switches the unlocked accounts and notifies listeners when the origin is authorized.
func (m *MemProvider) SetAccounts(ctx context.Context, accounts ...string) {
	m.lk.Lock()
	m.accounts = accounts
	var handlers []func([]string)
	if m.authorized {
		handlers = append(handlers, m.handlers...)
	}
	m.lk.Unlock()

	for _, h := range handlers {
		h(append([]string{}, accounts...))
	}
}

func (m *MemProvider) OnAccountsChanged(fn func(accounts []string)) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.handlers = append(m.handlers, fn)
}

func (m *MemProvider) Accounts(ctx context.Context) ([]string, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.fail {
		return nil, fmt.Errorf("mock error")
	}
	if !m.authorized {
		return []string{}, nil
	}
	return append([]string{}, m.accounts...), nil
}

func (m *MemProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.fail {
		return nil, fmt.Errorf("mock error")
	}
	if m.reject {
		return nil, fmt.Errorf("User rejected the request.")
	}
	m.authorized = true
	return append([]string{}, m.accounts...), nil
}
