package providerevent

import (
	"context"

	"github.com/google/uuid"

	"github.com/ipfs-force-community/rebalance-gateway/types"
)

type IProviderEvent interface {
	ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error)
	ListProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error)
}

// IProviderEventAPI is what a provider bridge calls.
type IProviderEventAPI interface {
	ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error
	ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error)
	NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error
}

var (
	_ IProviderEventAPI = (*ProviderEventStream)(nil)
	_ IProviderEvent    = (*ProviderEventStream)(nil)
)
