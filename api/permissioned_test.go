package api

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	gwauth "github.com/ipfs-force-community/rebalance-gateway/auth"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
	"github.com/ipfs-force-community/rebalance-gateway/walletlink"
)

type fakeNode struct {
	connects int
}

func (f *fakeNode) ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error) {
	return make(chan *types.RequestEvent), nil
}

func (f *fakeNode) ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error {
	return nil
}

func (f *fakeNode) NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error {
	return nil
}

func (f *fakeNode) ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error) {
	return []*types.ProviderDetail{{Session: "s1"}}, nil
}

func (f *fakeNode) ListProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error) {
	return &types.ProviderDetail{Session: session}, nil
}

func (f *fakeNode) WalletWatch(ctx context.Context) (<-chan *walletlink.WalletEvent, error) {
	return make(chan *walletlink.WalletEvent), nil
}

func (f *fakeNode) WalletConnect(ctx context.Context) (*walletconnect.ConnectResult, error) {
	f.connects++
	return &walletconnect.ConnectResult{Account: "0xabc", Linked: true}, nil
}

func (f *fakeNode) WalletState(ctx context.Context) (walletconnect.UIState, error) {
	return walletconnect.UIState{Kind: walletconnect.Linked, Account: "0xabc"}, nil
}

func (f *fakeNode) ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error) {
	return nil, nil
}

func TestPermissionProxy(t *testing.T) {
	impl := &fakeNode{}
	full := PermissionedFullAPI(impl)

	t.Run("no perms falls back to read", func(t *testing.T) {
		ctx := context.Background()
		state, err := full.WalletState(ctx)
		require.NoError(t, err)
		require.Equal(t, walletconnect.Linked, state.Kind)

		_, err = full.WalletConnect(ctx)
		require.Error(t, err)
		require.Contains(t, err.Error(), "missing permission to invoke 'WalletConnect' (need 'write')")
		require.Equal(t, 0, impl.connects)
	})

	t.Run("session perms", func(t *testing.T) {
		ctx := auth.WithPerm(context.Background(), gwauth.SessionPerms)
		res, err := full.WalletConnect(ctx)
		require.NoError(t, err)
		require.True(t, res.Linked)
		require.Equal(t, 1, impl.connects)

		_, err = full.ListProviderInfo(ctx)
		require.Error(t, err)
		require.Contains(t, err.Error(), "need 'admin'")
	})

	t.Run("admin perms", func(t *testing.T) {
		ctx := auth.WithPerm(context.Background(), gwauth.AdminPerms)
		detail, err := full.ListProviderInfoBySession(ctx, "s2")
		require.NoError(t, err)
		require.Equal(t, "s2", detail.Session)

		require.NoError(t, full.NotifyAccountsChanged(ctx, uuid.New(), nil))
	})
}

func TestDialArgs(t *testing.T) {
	for _, c := range []struct {
		in, out string
	}{
		{"/ip4/127.0.0.1/tcp/45132", "ws://127.0.0.1:45132/rpc/v0"},
		{"http://127.0.0.1:45132", "ws://127.0.0.1:45132/rpc/v0"},
		{"https://gateway.example.com", "wss://gateway.example.com/rpc/v0"},
	} {
		out, err := DialArgs(c.in)
		require.NoError(t, err)
		require.Equal(t, c.out, out)
	}
}
