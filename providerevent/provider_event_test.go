package providerevent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ipfs-force-community/rebalance-gateway/testhelper"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
)

const (
	providerType = "metamask"
	accountA     = "0xAAA0000000000000000000000000000000001111"
	accountB     = "0xBBB0000000000000000000000000000000002222"
)

func TestListenProviderEvent(t *testing.T) {
	t.Run("correct", func(t *testing.T) {
		session := "session-1"
		providerEvent := setupProviderEvent(t)
		policy := &types.ProviderRegisterPolicy{ProviderType: providerType, Accounts: []string{accountA}}

		ctx, cancel := context.WithCancel(context.Background())

		client := setupClient(t, session, providerEvent)
		client.listenProviderEvent(ctx, policy)
		go client.start(ctx)
		initBody := <-client.readyForInit

		detail, err := providerEvent.ListProviderInfoBySession(ctx, session)
		require.NoError(t, err)
		require.Equal(t, session, detail.Session)
		require.Len(t, detail.ConnectStates, 1)
		require.Equal(t, initBody.ChannelId, detail.ConnectStates[0].ChannelID)
		require.Equal(t, providerType, detail.ConnectStates[0].ProviderType)
		require.Equal(t, []string{accountA}, detail.ConnectStates[0].Accounts)
		require.Equal(t, "127.1.1.1", detail.ConnectStates[0].IP)

		//cancel and got a close request channel
		cancel()
		client.waitClose()
		require.Eventually(t, func() bool {
			_, err := providerEvent.ListProviderInfoBySession(context.Background(), session)
			return err != nil
		}, time.Second*5, time.Millisecond*10)
	})

	t.Run("multiple listen", func(t *testing.T) {
		session := "session-1"
		providerEvent := setupProviderEvent(t)
		policy := &types.ProviderRegisterPolicy{ProviderType: providerType}

		ctx, cancel := context.WithCancel(context.Background())

		client := setupClient(t, session, providerEvent)
		client.listenProviderEvent(ctx, policy)
		go client.start(ctx)
		<-client.readyForInit

		client2 := setupClient(t, session, providerEvent)
		client2.listenProviderEvent(ctx, policy)
		go client2.start(ctx)
		<-client2.readyForInit

		detail, err := providerEvent.ListProviderInfoBySession(ctx, session)
		require.NoError(t, err)
		require.Len(t, detail.ConnectStates, 2)

		details, err := providerEvent.ListProviderInfo(ctx)
		require.NoError(t, err)
		require.Len(t, details, 1)

		//cancel and got a close request channel
		cancel()
		client.waitClose()
		client2.waitClose()
	})

	t.Run("session not found", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		_, err := providerEvent.ListenProviderEvent(context.Background(), &types.ProviderRegisterPolicy{ProviderType: providerType})
		require.EqualError(t, err, "unable to get session in method ListenProviderEvent request")

		_, err = providerEvent.ListProviderInfoBySession(context.Background(), "unknown")
		require.EqualError(t, err, "session unknown not exist")
	})
}

func TestRemoteProvider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("presence follows the bridge", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		remote := providerEvent.RemoteProvider("session-1")
		require.False(t, remote.IsPresent(ctx))

		bridgeCtx, bridgeCancel := context.WithCancel(ctx)
		_, _ = setupBridge(bridgeCtx, t, providerEvent, "session-1", providerType, testhelper.NewMemProvider(accountA))
		require.True(t, remote.IsPresent(ctx))
		require.False(t, providerEvent.RemoteProvider("session-2").IsPresent(ctx))

		bridgeCancel()
		require.Eventually(t, func() bool {
			return !remote.IsPresent(ctx)
		}, time.Second*5, time.Millisecond*10)
	})

	t.Run("other provider type is absent", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		_, _ = setupBridge(ctx, t, providerEvent, "session-1", "coinbase", testhelper.NewMemProvider(accountA))

		remote := providerEvent.RemoteProvider("session-1")
		require.False(t, remote.IsPresent(ctx))
		_, err := remote.RequestAccounts(ctx)
		require.EqualError(t, err, "no metamask provider connected for session session-1")
	})

	t.Run("accounts", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		mem := testhelper.NewMemProvider(accountA, accountB)
		_, _ = setupBridge(ctx, t, providerEvent, "session-1", providerType, mem)
		remote := providerEvent.RemoteProvider("session-1")

		authorized, err := remote.AuthorizedAccounts(ctx)
		require.NoError(t, err)
		require.Empty(t, authorized)

		accounts, err := remote.RequestAccounts(ctx)
		require.NoError(t, err)
		require.Equal(t, []walletconnect.Account{accountA, accountB}, accounts)

		authorized, err = remote.AuthorizedAccounts(ctx)
		require.NoError(t, err)
		require.Equal(t, []walletconnect.Account{accountA, accountB}, authorized)
	})

	t.Run("user rejects", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		mem := testhelper.NewMemProvider(accountA)
		mem.SetReject(ctx, true)
		_, _ = setupBridge(ctx, t, providerEvent, "session-1", providerType, mem)

		_, err := providerEvent.RemoteProvider("session-1").RequestAccounts(ctx)
		require.EqualError(t, err, "eth_requestAccounts: User rejected the request.")
	})

	t.Run("accounts changed reaches subscribers in order", func(t *testing.T) {
		providerEvent := setupProviderEvent(t)
		mem := testhelper.NewMemProvider(accountA)
		_, _ = setupBridge(ctx, t, providerEvent, "session-1", providerType, mem)
		remote := providerEvent.RemoteProvider("session-1")

		var got []string
		sub1, err := remote.SubscribeAccountsChanged(func(accounts []walletconnect.Account) {
			got = append(got, "first:"+joinAccounts(accounts))
		})
		require.NoError(t, err)
		_, err = remote.SubscribeAccountsChanged(func(accounts []walletconnect.Account) {
			panic("broken subscriber")
		})
		require.NoError(t, err)
		_, err = remote.SubscribeAccountsChanged(func(accounts []walletconnect.Account) {
			got = append(got, "third:"+joinAccounts(accounts))
		})
		require.NoError(t, err)

		_, err = remote.RequestAccounts(ctx)
		require.NoError(t, err)

		mem.SetAccounts(ctx, accountB)
		mem.SetAccounts(ctx)
		require.Equal(t, []string{"first:" + accountB, "third:" + accountB, "first:", "third:"}, got)

		sub1.Unsubscribe()
		sub1.Unsubscribe()
		detail, err := providerEvent.ListProviderInfoBySession(ctx, "session-1")
		require.NoError(t, err)
		require.Equal(t, 2, detail.Subscribers)
		require.Empty(t, detail.ConnectStates[0].Accounts)

		mem.SetAccounts(ctx, accountA)
		require.Equal(t, "third:"+accountA, got[len(got)-1])
		require.Len(t, got, 5)
	})
}

func TestNotifyAccountsChanged(t *testing.T) {
	ctx := context.Background()
	providerEvent := setupProviderEvent(t)

	err := providerEvent.NotifyAccountsChanged(ctx, uuid.New(), []string{accountA})
	require.EqualError(t, err, "unable to get session in method NotifyAccountsChanged request")

	err = providerEvent.NotifyAccountsChanged(types.CtxWithSession(ctx, "session-1"), uuid.New(), []string{accountA})
	require.Error(t, err)
}

func joinAccounts(accounts []walletconnect.Account) string {
	var s string
	for _, account := range accounts {
		s += string(account)
	}
	return s
}

func setupProviderEvent(t *testing.T) *ProviderEventStream {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewProviderEventStream(ctx, types.DefaultConfig(), providerType)
}

// sessionAPI is the stream as seen by a bridge authenticated for one session.
type sessionAPI struct {
	stream  *ProviderEventStream
	session string
}

func (s *sessionAPI) withSession(ctx context.Context) context.Context {
	return types.CtxWithIP(types.CtxWithSession(ctx, s.session), "127.1.1.1")
}

func (s *sessionAPI) ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error {
	return s.stream.ResponseProviderEvent(s.withSession(ctx), resp)
}

func (s *sessionAPI) ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error) {
	return s.stream.ListenProviderEvent(s.withSession(ctx), policy)
}

func (s *sessionAPI) NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error {
	return s.stream.NotifyAccountsChanged(s.withSession(ctx), channelID, accounts)
}

func setupBridge(ctx context.Context, t *testing.T, stream *ProviderEventStream, session, typ string, handler *testhelper.MemProvider) (*ProviderEventClient, *sessionAPI) {
	api := &sessionAPI{stream: stream, session: session}
	client := NewProviderEventClient(ctx, handler, api, typ, zap.NewNop().Sugar())
	go client.ListenProviderRequest(ctx)

	readyCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	client.WaitReady(readyCtx)
	require.NoError(t, readyCtx.Err())
	return client, api
}

func setupClient(t *testing.T, session string, event *ProviderEventStream) *mockClient {
	return &mockClient{
		t:            t,
		session:      session,
		event:        event,
		readyForInit: make(chan *types.ConnectedCompleted),
	}
}

type mockClient struct {
	t            *testing.T
	session      string
	channelID    uuid.UUID
	requestCh    <-chan *types.RequestEvent
	event        *ProviderEventStream
	readyForInit chan *types.ConnectedCompleted
}

func (m *mockClient) waitClose() {
	for {
		select {
		case <-time.After(time.Second * 30):
			m.t.Errorf("unable to wait for closed channel within 30s")
			return
		case _, ok := <-m.requestCh:
			if !ok {
				return
			}
		}
	}
}

func (m *mockClient) listenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) {
	ctx = types.CtxWithIP(ctx, "127.1.1.1")
	ctx = types.CtxWithSession(ctx, m.session)
	requestCh, err := m.event.ListenProviderEvent(ctx, policy)
	require.NoError(m.t, err)
	m.requestCh = requestCh
}

func (m *mockClient) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-m.requestCh:
			if !ok {
				return
			}
			if req.Method == types.MethodInitConnect {
				initBody := &types.ConnectedCompleted{}
				if err := json.Unmarshal(req.Payload, initBody); err != nil {
					m.t.Errorf("unmarshal init connect: %v", err)
					return
				}
				m.channelID = initBody.ChannelId
				m.readyForInit <- initBody
			}
		}
	}
}
