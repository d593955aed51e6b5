package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
	"github.com/ipfs-force-community/rebalance-gateway/walletlink"
)

// GatewayFullNode is everything the gateway serves over JSON-RPC.
type GatewayFullNode interface {
	IProviderEvent
	IWalletLink
}

type IProviderEvent interface {
	ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error)
	ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error
	NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error

	ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error)
	ListProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error)
}

type IWalletLink interface {
	WalletWatch(ctx context.Context) (<-chan *walletlink.WalletEvent, error)
	WalletConnect(ctx context.Context) (*walletconnect.ConnectResult, error)
	WalletState(ctx context.Context) (walletconnect.UIState, error)

	ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error)
}

var _ GatewayFullNode = (*GatewayFullNodeStruct)(nil)

// GatewayFullNodeStruct is filled by PermissionProxy on the server and by the jsonrpc client on the caller side.
type GatewayFullNodeStruct struct {
	IProviderEventStruct
	IWalletLinkStruct
}

type IProviderEventStruct struct {
	Internal struct {
		ListenProviderEvent   func(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error) `perm:"read"`
		ResponseProviderEvent func(ctx context.Context, resp *types.ResponseEvent) error                                            `perm:"read"`
		NotifyAccountsChanged func(ctx context.Context, channelID uuid.UUID, accounts []string) error                              `perm:"read"`

		ListProviderInfo          func(ctx context.Context) ([]*types.ProviderDetail, error)                `perm:"admin"`
		ListProviderInfoBySession func(ctx context.Context, session string) (*types.ProviderDetail, error) `perm:"admin"`
	}
}

func (s *IProviderEventStruct) ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error) {
	return s.Internal.ListenProviderEvent(ctx, policy)
}

func (s *IProviderEventStruct) ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error {
	return s.Internal.ResponseProviderEvent(ctx, resp)
}

func (s *IProviderEventStruct) NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error {
	return s.Internal.NotifyAccountsChanged(ctx, channelID, accounts)
}

func (s *IProviderEventStruct) ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error) {
	return s.Internal.ListProviderInfo(ctx)
}

func (s *IProviderEventStruct) ListProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error) {
	return s.Internal.ListProviderInfoBySession(ctx, session)
}

type IWalletLinkStruct struct {
	Internal struct {
		WalletWatch   func(ctx context.Context) (<-chan *walletlink.WalletEvent, error) `perm:"read"`
		WalletConnect func(ctx context.Context) (*walletconnect.ConnectResult, error)   `perm:"write"`
		WalletState   func(ctx context.Context) (walletconnect.UIState, error)          `perm:"read"`

		ListWalletViews func(ctx context.Context) ([]*types.WalletViewInfo, error) `perm:"admin"`
	}
}

func (s *IWalletLinkStruct) WalletWatch(ctx context.Context) (<-chan *walletlink.WalletEvent, error) {
	return s.Internal.WalletWatch(ctx)
}

func (s *IWalletLinkStruct) WalletConnect(ctx context.Context) (*walletconnect.ConnectResult, error) {
	return s.Internal.WalletConnect(ctx)
}

func (s *IWalletLinkStruct) WalletState(ctx context.Context) (walletconnect.UIState, error) {
	return s.Internal.WalletState(ctx)
}

func (s *IWalletLinkStruct) ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error) {
	return s.Internal.ListWalletViews(ctx)
}
