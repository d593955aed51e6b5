package walletconnect

import (
	"context"
	"sync"
)

// Connector is one mounted wallet view: a store, its coordinator and the accounts-changed
// subscription that lives exactly as long as the mount.
type Connector struct {
	probe   *Probe
	store   *Store
	coord   *Coordinator
	session Session

	lk        sync.Mutex
	sub       Subscription
	mounted   bool
	unmounted bool
}

func NewConnector(provider Provider, linker Linker, session Session, observers ...Observer) *Connector {
	probe := NewProbe(provider)
	store := NewStore(observers...)
	return &Connector{
		probe:   probe,
		store:   store,
		coord:   NewCoordinator(probe, store, linker, session),
		session: session,
	}
}

// Mount reads the initial state and subscribes to account changes. It can be called once.
func (c *Connector) Mount(ctx context.Context) (err error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.unmounted {
		return ErrUnmounted
	}
	if c.mounted {
		return ErrAlreadyMounted
	}
	c.mounted = true

	defer func() {
		if err != nil {
			c.release()
		}
	}()

	present := c.probe.IsPresent(ctx)
	c.store.setProviderPresent(present)

	link, err := c.session.SessionLink(ctx)
	if err != nil {
		log.Warnf("read session wallet link: %v", err)
	} else if link != nil {
		c.store.setSessionLink(*link)
	}

	if c.probe.provider != nil {
		listener := &accountsListener{store: c.store}
		sub, err := c.probe.Subscribe(listener.handle)
		if err != nil {
			log.Warnf("%s: subscribe accounts changed: %v", NotificationError, err)
		} else {
			c.sub = sub
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if present && c.store.Local() == nil && c.store.SessionLink() == nil {
		if accounts := c.probe.AuthorizedAccounts(ctx); len(accounts) > 0 {
			c.store.setLocalIfEmpty(accounts[0])
		}
	}
	return nil
}

// Unmount releases the subscription and detaches the store. Calling it again does nothing.
func (c *Connector) Unmount() {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.release()
}

func (c *Connector) release() {
	if c.unmounted {
		return
	}
	c.unmounted = true
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.store.teardown()
}

// Connect runs the link coordinator. Results arriving after Unmount no longer touch the view.
func (c *Connector) Connect(ctx context.Context) (*ConnectResult, error) {
	c.lk.Lock()
	mounted, unmounted := c.mounted, c.unmounted
	c.lk.Unlock()
	if !mounted || unmounted {
		return nil, ErrUnmounted
	}
	return c.coord.Connect(ctx)
}

func (c *Connector) State() UIState {
	return c.store.State()
}

func (c *Connector) Store() *Store {
	return c.store
}
