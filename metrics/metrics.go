package metrics

import (
	"time"

	rpcMetrics "github.com/filecoin-project/go-jsonrpc/metrics"
	"github.com/ipfs-force-community/metrics"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Global Tags
var (
	SessionKey, _      = tag.NewKey("session")
	ProviderTypeKey, _ = tag.NewKey("provider_type")
	MethodKey, _       = tag.NewKey("method")
	ResultKey, _       = tag.NewKey("result")

	IPKey, _ = tag.NewKey("ip")
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000, 20000, 50000, 100000)

var (
	// provider bridge
	ProviderNum             = metrics.NewInt64("provider/num", "Sessions with a provider bridge", stats.UnitDimensionless)
	ProviderConnNum         = metrics.NewInt64("provider/conn_num", "Provider bridge connection count", stats.UnitDimensionless)
	ProviderRegister        = stats.Int64("provider/register", "Provider bridge register", stats.UnitDimensionless)
	ProviderUnregister      = stats.Int64("provider/unregister", "Provider bridge unregister", stats.UnitDimensionless)
	ProviderAccountsChanged = stats.Int64("provider/accounts_changed", "Accounts changed notifications", stats.UnitDimensionless)

	// wallet views
	WalletViewNum = metrics.NewInt64("wallet/view_num", "Mounted wallet views", stats.UnitDimensionless)
	WalletConnect = stats.Int64("wallet/connect", "Wallet connect attempts", stats.UnitDimensionless)

	// method call
	ProviderRequest       = stats.Float64("provider_request", "Call provider request spent time", stats.UnitMilliseconds)
	WalletConnectDuration = stats.Float64("wallet_connect", "Call WalletConnect spent time", stats.UnitMilliseconds)
	AIRequest             = stats.Float64("ai_request", "Call AI prediction service spent time", stats.UnitMilliseconds)

	ApiState = metrics.NewInt64("api/state", "api service state. 0: down, 1: up", "")
)

var (
	// provider bridge
	providerRegisterView = &view.View{
		Measure:     ProviderRegister,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ProviderTypeKey, IPKey},
	}
	providerUnregisterView = &view.View{
		Measure:     ProviderUnregister,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ProviderTypeKey, IPKey},
	}
	providerAccountsChangedView = &view.View{
		Measure:     ProviderAccountsChanged,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ProviderTypeKey},
	}

	// wallet views
	walletConnectView = &view.View{
		Measure:     WalletConnect,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ResultKey},
	}

	// method call
	providerRequestView = &view.View{
		Measure:     ProviderRequest,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{MethodKey},
	}
	walletConnectDurationView = &view.View{
		Measure:     WalletConnectDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{ResultKey},
	}
	aiRequestView = &view.View{
		Measure:     AIRequest,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{MethodKey},
	}
)

var views = append([]*view.View{
	providerRegisterView,
	providerUnregisterView,
	providerAccountsChangedView,
	walletConnectView,
	providerRequestView,
	walletConnectDurationView,
	aiRequestView,
}, rpcMetrics.DefaultViews...)

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

func init() {
	// register metrics
	_ = view.Register(views...)
}
