package walletlink

import (
	"context"
	"errors"

	"github.com/ipfs-force-community/rebalance-gateway/userstore"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
)

var errNotSignedIn = errors.New("session is not signed in")

var (
	_ walletconnect.Linker  = (*userLinker)(nil)
	_ walletconnect.Session = (*sessionCache)(nil)
)

// userLinker persists the link on the user the session belongs to.
type userLinker struct {
	handle    *userstore.Handle
	sessionID string
}

func (l *userLinker) LinkAccount(ctx context.Context, account walletconnect.Account) error {
	store, err := l.handle.Get(ctx)
	if err != nil {
		return err
	}
	session, err := store.GetSession(ctx, l.sessionID)
	if err != nil {
		return err
	}
	if !session.Authenticated() {
		return errNotSignedIn
	}
	_, err = store.SetUserWallet(ctx, session.UserID, account.String())
	return err
}

// sessionCache reads and refreshes the wallet address carried by the server side session.
type sessionCache struct {
	handle    *userstore.Handle
	sessionID string
}

func (s *sessionCache) load(ctx context.Context) (*userstore.Session, error) {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.GetSession(ctx, s.sessionID)
}

func (s *sessionCache) Authenticated(ctx context.Context) bool {
	session, err := s.load(ctx)
	if err != nil {
		log.Warnf("load session %s: %v", s.sessionID, err)
		return false
	}
	return session.Authenticated()
}

func (s *sessionCache) SessionLink(ctx context.Context) (*walletconnect.Account, error) {
	session, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if session.WalletAddress == nil || len(*session.WalletAddress) == 0 {
		return nil, nil
	}
	return walletconnect.Account(*session.WalletAddress).Ptr(), nil
}

func (s *sessionCache) SetSessionLink(ctx context.Context, account walletconnect.Account) error {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return err
	}
	return store.SetSessionWallet(ctx, s.sessionID, account.String())
}
