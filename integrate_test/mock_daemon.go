package integrate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/gorilla/mux"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ipfs-force-community/rebalance-gateway/aiclient"
	"github.com/ipfs-force-community/rebalance-gateway/api"
	"github.com/ipfs-force-community/rebalance-gateway/auth"
	"github.com/ipfs-force-community/rebalance-gateway/config"
	"github.com/ipfs-force-community/rebalance-gateway/httpapi"
	"github.com/ipfs-force-community/rebalance-gateway/providerevent"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
	"github.com/ipfs-force-community/rebalance-gateway/version"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
	"github.com/ipfs-force-community/rebalance-gateway/walletlink"
)

var log = logging.Logger("mock main")

type testConfig struct {
	requestTimeout time.Duration
	clearInterval  time.Duration
}

func defaultTestConfig() testConfig {
	return testConfig{
		requestTimeout: time.Second * 10,
		clearInterval:  time.Minute,
	}
}

// MockMain assembles the gateway like the daemon does and serves it from an httptest server.
// It returns the server url, the admin token and a func stopping the server.
func MockMain(ctx context.Context, repoPath string, cfg *config.Config, tcfg testConfig) (string, string, func(), error) {
	requestCfg := &types.RequestConfig{
		RequestQueueSize: 30,
		RequestTimeout:   tcfg.requestTimeout,
		ClearInterval:    tcfg.clearInterval,
	}
	_, sessionTTL, _, err := cfg.Durations()
	if err != nil {
		return "", "", nil, err
	}

	handle := userstore.NewHandle(cfg.DB.Path)
	sessions := auth.NewService(handle, []byte(cfg.Session.JWTSecret), sessionTTL)
	localToken, err := auth.NewLocalToken(repoPath)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate local token: %v", err)
	}

	providerStream := providerevent.NewProviderEventStream(ctx, requestCfg, cfg.Provider.Type)
	walletViews := walletlink.NewService(handle, func(session string) walletconnect.Provider {
		return providerStream.RemoteProvider(session)
	}, cfg.Provider.QueueSize)
	fullNode := api.PermissionedFullAPI(api.NewGatewayAPIImpl(providerStream, walletViews))

	aiClient, err := aiclient.NewClient(cfg.AI.URL, time.Second*5)
	if err != nil {
		return "", "", nil, err
	}

	log.Infof("rebalance-gateway current version %s", version.UserVersion)

	router := mux.NewRouter()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register("Gateway", fullNode)
	router.Handle(api.RPCPath, &auth.AuthHandler{Local: localToken, Sessions: sessions, Next: rpcServer})
	httpapi.NewServer(sessions, localToken, handle, aiClient).Register(router)

	srv := httptest.NewServer(router)
	stop := func() {
		srv.Close()
		if err := handle.Close(); err != nil {
			log.Errorf("close user store: %v", err)
		}
	}
	return srv.URL, string(localToken.Token), stop, nil
}

// mockAIService answers like the prediction service with a fixed allocation.
func mockAIService() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/rebalance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[{"token":"ETH","return_7d":0.031},{"token":"USDC","return_7d":0.001}],"new_allocation":{"ETH":70,"USDC":30}}`))
	})
	mux.HandleFunc("/strategies", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["conservative","balanced","aggressive"]`))
	})
	return httptest.NewServer(mux)
}
