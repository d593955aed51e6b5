package walletconnect

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("walletconnect")

// Provider is the wallet capability a view consumes.
type Provider interface {
	// IsPresent reports whether a provider exists and identifies as the expected type.
	IsPresent(ctx context.Context) bool
	// AuthorizedAccounts lists accounts already authorized for this origin, without prompting.
	AuthorizedAccounts(ctx context.Context) ([]Account, error)
	// RequestAccounts prompts the user for authorization.
	RequestAccounts(ctx context.Context) ([]Account, error)
	// SubscribeAccountsChanged registers handler for every change of the unlocked account set,
	// including changes to the empty set.
	SubscribeAccountsChanged(handler func(accounts []Account)) (Subscription, error)
}

type Subscription interface {
	Unsubscribe()
}

// Probe applies the error policy of the view on top of a Provider. A nil Provider is absent.
type Probe struct {
	provider Provider
}

func NewProbe(provider Provider) *Probe {
	return &Probe{provider: provider}
}

// IsPresent never panics; a provider that does counts as absent.
func (p *Probe) IsPresent(ctx context.Context) (present bool) {
	if p.provider == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("provider presence check panic: %v", r)
			present = false
		}
	}()
	return p.provider.IsPresent(ctx)
}

// AuthorizedAccounts is a background check: failures are logged and yield no accounts.
func (p *Probe) AuthorizedAccounts(ctx context.Context) []Account {
	if !p.IsPresent(ctx) {
		return nil
	}
	accounts, err := p.provider.AuthorizedAccounts(ctx)
	if err != nil {
		log.Warnf("%s: checking existing accounts: %v", NotificationError, err)
		return nil
	}
	return accounts
}

// RequestAccounts returns at least one account or a ProviderAbsent/ProviderRejected error.
func (p *Probe) RequestAccounts(ctx context.Context) ([]Account, error) {
	if !p.IsPresent(ctx) {
		return nil, newError(ProviderAbsent, "please install a wallet provider to connect your wallet", nil)
	}
	accounts, err := p.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, newError(ProviderRejected, "failed to connect wallet", err)
	}
	if len(accounts) == 0 {
		return nil, newError(ProviderRejected, "no accounts found", nil)
	}
	return accounts, nil
}

// Subscribe registers handler and returns a handle whose Unsubscribe is safe to call twice.
func (p *Probe) Subscribe(handler func(accounts []Account)) (Subscription, error) {
	if p.provider == nil {
		return nil, newError(ProviderAbsent, "no provider to subscribe to", nil)
	}
	sub, err := p.provider.SubscribeAccountsChanged(handler)
	if err != nil {
		return nil, err
	}
	return &onceSubscription{sub: sub}, nil
}

type onceSubscription struct {
	once sync.Once
	sub  Subscription
}

func (s *onceSubscription) Unsubscribe() {
	s.once.Do(s.sub.Unsubscribe)
}
