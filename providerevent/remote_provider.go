package providerevent

import (
	"context"
	"sync"

	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
)

var _ walletconnect.Provider = (*RemoteProvider)(nil)

// RemoteProvider is the injected provider of one session, reached through its bridges.
type RemoteProvider struct {
	stream  *ProviderEventStream
	session string
}

// IsPresent reports whether a bridge of the expected provider type is connected.
func (r *RemoteProvider) IsPresent(ctx context.Context) bool {
	return r.stream.connMgr.hasProviderChannel(r.session, r.stream.expectedType)
}

func (r *RemoteProvider) AuthorizedAccounts(ctx context.Context) ([]walletconnect.Account, error) {
	accounts, err := r.stream.request(ctx, r.session, types.MethodAccounts)
	if err != nil {
		return nil, err
	}
	return toAccounts(accounts), nil
}

func (r *RemoteProvider) RequestAccounts(ctx context.Context) ([]walletconnect.Account, error) {
	accounts, err := r.stream.request(ctx, r.session, types.MethodRequestAccounts)
	if err != nil {
		return nil, err
	}
	return toAccounts(accounts), nil
}

func (r *RemoteProvider) SubscribeAccountsChanged(handler func(accounts []walletconnect.Account)) (walletconnect.Subscription, error) {
	id := r.stream.connMgr.subscribe(r.session, func(accounts []string) {
		handler(toAccounts(accounts))
	})
	return &subscription{mgr: r.stream.connMgr, session: r.session, id: id}, nil
}

type subscription struct {
	once    sync.Once
	mgr     IProviderConnMgr
	session string
	id      uint64
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mgr.unsubscribe(s.session, s.id)
	})
}

func toAccounts(accounts []string) []walletconnect.Account {
	if len(accounts) == 0 {
		return nil
	}
	out := make([]walletconnect.Account, len(accounts))
	for i, account := range accounts {
		out[i] = walletconnect.Account(account)
	}
	return out
}
