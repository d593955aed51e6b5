package api

import (
	"context"

	"github.com/ipfs-force-community/rebalance-gateway/providerevent"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
	"github.com/ipfs-force-community/rebalance-gateway/walletlink"
)

var _ GatewayFullNode = (*GatewayAPIImpl)(nil)

type GatewayAPIImpl struct {
	providerevent.IProviderEventAPI
	providerevent.IProviderEvent

	wl *walletlink.Service
}

func NewGatewayAPIImpl(pe *providerevent.ProviderEventStream, wl *walletlink.Service) *GatewayAPIImpl {
	return &GatewayAPIImpl{
		IProviderEventAPI: pe,
		IProviderEvent:    pe,
		wl:                wl,
	}
}

func (g *GatewayAPIImpl) WalletWatch(ctx context.Context) (<-chan *walletlink.WalletEvent, error) {
	return g.wl.Watch(ctx)
}

func (g *GatewayAPIImpl) WalletConnect(ctx context.Context) (*walletconnect.ConnectResult, error) {
	return g.wl.Connect(ctx)
}

func (g *GatewayAPIImpl) WalletState(ctx context.Context) (walletconnect.UIState, error) {
	return g.wl.State(ctx)
}

func (g *GatewayAPIImpl) ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error) {
	return g.wl.ListWalletViews(ctx)
}
