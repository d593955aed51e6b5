package metrics

import (
	"context"
	"time"

	"github.com/ipfs-force-community/rebalance-gateway/types"
)

// ConnectionLister is the part of the gateway API the gauge loop reads.
type ConnectionLister interface {
	ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error)
	ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error)
}

// recordMetricsLoop records right away and then on every tick.
func recordMetricsLoop(ctx context.Context, api ConnectionLister, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		recordProviderConnectionInfo(ctx, api)
		recordWalletViewInfo(ctx, api)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Infof("context done, stop record metrics")
			return
		}
	}
}

func recordProviderConnectionInfo(ctx context.Context, api ConnectionLister) {
	details, err := api.ListProviderInfo(ctx)
	if err != nil {
		log.Warnf("failed to list provider info %v", err)
		return
	}

	var sessionNum, connNum int64
	for _, detail := range details {
		if len(detail.ConnectStates) == 0 {
			continue
		}
		sessionNum++
		connNum += int64(len(detail.ConnectStates))
	}

	ProviderNum.Set(ctx, sessionNum)
	ProviderConnNum.Set(ctx, connNum)
}

func recordWalletViewInfo(ctx context.Context, api ConnectionLister) {
	views, err := api.ListWalletViews(ctx)
	if err != nil {
		log.Warnf("failed to list wallet views %v", err)
		return
	}
	WalletViewNum.Set(ctx, int64(len(views)))
}
