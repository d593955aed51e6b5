package walletconnect

import (
	"context"
)

// Linker persists the association between the signed-in user and an account.
type Linker interface {
	LinkAccount(ctx context.Context, account Account) error
}

// Session is the narrow view of the identity layer the coordinator needs.
type Session interface {
	Authenticated(ctx context.Context) bool
	SessionLink(ctx context.Context) (*Account, error)
	SetSessionLink(ctx context.Context, account Account) error
}

type ConnectResult struct {
	Account Account
	// Linked is false when no identity was signed in and the account is only connected locally.
	Linked bool
}

// Coordinator runs the connect action for one store.
type Coordinator struct {
	probe   *Probe
	store   *Store
	linker  Linker
	session Session
}

func NewCoordinator(probe *Probe, store *Store, linker Linker, session Session) *Coordinator {
	return &Coordinator{
		probe:   probe,
		store:   store,
		linker:  linker,
		session: session,
	}
}

// Connect requests accounts, records the first one locally and, when an identity is signed in,
// links it exactly once. Linked is only reported after the linker acknowledged.
func (c *Coordinator) Connect(ctx context.Context) (*ConnectResult, error) {
	present := c.probe.IsPresent(ctx)
	c.store.setProviderPresent(present)
	if !present {
		return nil, c.fail(newError(ProviderAbsent, "please install a wallet provider to connect your wallet", nil))
	}

	if err := c.store.beginConnect(); err != nil {
		return nil, err
	}
	defer c.store.endConnect()

	accounts, err := c.probe.RequestAccounts(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	// The account captured here is the one linked, whatever notifications arrive meanwhile.
	account := accounts[0]
	c.store.setLocal(account)

	if !c.session.Authenticated(ctx) {
		log.Infof("wallet %s connected, sign in to link it", account)
		return &ConnectResult{Account: account}, nil
	}

	if err := c.linker.LinkAccount(ctx, account); err != nil {
		return nil, c.fail(newError(PersistenceError, "failed to update wallet address", err))
	}

	if err := c.session.SetSessionLink(ctx, account); err != nil {
		log.Warnf("refresh session with wallet %s: %v", account, err)
	}
	c.store.setSessionLink(account)
	log.Infof("wallet %s linked", account)

	return &ConnectResult{Account: account, Linked: true}, nil
}

func (c *Coordinator) fail(err error) error {
	if kind, ok := KindOf(err); ok {
		c.store.reportError(kind, err.Error())
	}
	return err
}
