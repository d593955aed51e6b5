package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/gorilla/mux"
	"github.com/ipfs-force-community/metrics"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/plugin/ochttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ipfs-force-community/rebalance-gateway/aiclient"
	"github.com/ipfs-force-community/rebalance-gateway/api"
	"github.com/ipfs-force-community/rebalance-gateway/auth"
	"github.com/ipfs-force-community/rebalance-gateway/cmds"
	"github.com/ipfs-force-community/rebalance-gateway/config"
	"github.com/ipfs-force-community/rebalance-gateway/httpapi"
	gwmetrics "github.com/ipfs-force-community/rebalance-gateway/metrics"
	"github.com/ipfs-force-community/rebalance-gateway/providerevent"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
	"github.com/ipfs-force-community/rebalance-gateway/version"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
	"github.com/ipfs-force-community/rebalance-gateway/walletlink"
)

var log = logging.Logger("main")

func main() {
	_ = logging.SetLogLevel("*", "INFO")

	app := &cli.App{
		Name:  "rebalance-gateway",
		Usage: "rebalance-gateway links injected wallet providers to user sessions and serves the rebalance api",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "host address and port the gateway api will listen on",
				Value:   "/ip4/127.0.0.1/tcp/45132",
				EnvVars: []string{config.EnvListen},
			},
			&cli.StringFlag{
				Name:  "repo",
				Usage: "directory holding config.toml, .env and the admin token",
				Value: "~/.rebalance-gateway",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "token to call the gateway with, defaults to the admin token in the repo",
				EnvVars: []string{"GATEWAY_TOKEN"},
			},
		},
		Commands: []*cli.Command{
			runCmd, cmds.ProviderCmds, cmds.WalletCmds,
		},
	}
	app.Version = version.UserVersion
	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "start rebalance-gateway daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "ai-url", Usage: "address of the AI prediction service"},
		&cli.StringFlag{Name: "db-path", Usage: "badger directory, relative paths are inside the repo"},
		&cli.StringFlag{Name: "jaeger-proxy", EnvVars: []string{"GATEWAY_JAEGER_PROXY"}},
		&cli.Float64Flag{Name: "trace-sampler", EnvVars: []string{"GATEWAY_TRACE_SAMPLER"}, Value: 1.0},
		&cli.StringFlag{Name: "trace-node-name", Value: "rebalance-gateway"},
		&cli.StringFlag{Name: "log-level", Usage: "overrides Log.Level of the config"},
	},
	Action: func(cctx *cli.Context) error {
		repo, err := homedir.Expand(cctx.String("repo"))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(repo, 0755); err != nil {
			return err
		}
		cfg, err := loadConfig(cctx, repo)
		if err != nil {
			return err
		}
		if err := setupLogging(repo, cfg.Log); err != nil {
			return err
		}

		return RunMain(cctx.Context, repo, cfg)
	},
}

// loadConfig layers flags over the environment over config.toml, writing the defaults on first run.
func loadConfig(cctx *cli.Context, repo string) (*config.Config, error) {
	cfgPath := filepath.Join(repo, config.ConfigFile)
	cfg, err := config.ReadConfig(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		cfg = config.DefaultConfig()
		if err := config.WriteConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
		log.Infof("wrote default config to %s", cfgPath)
	}

	if err := config.LoadEnv(repo, "."); err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)

	if cctx.IsSet("listen") {
		cfg.API.ListenAddress = cctx.String("listen")
	}
	if cctx.IsSet("ai-url") {
		cfg.AI.URL = cctx.String("ai-url")
	}
	if cctx.IsSet("db-path") {
		cfg.DB.Path = cctx.String("db-path")
	}
	if cctx.IsSet("log-level") {
		cfg.Log.Level = cctx.String("log-level")
	}
	if proxy := strings.TrimSpace(cctx.String("jaeger-proxy")); len(proxy) > 0 {
		cfg.Trace.JaegerTracingEnabled = true
		cfg.Trace.JaegerEndpoint = proxy
		cfg.Trace.ProbabilitySampler = cctx.Float64("trace-sampler")
		cfg.Trace.ServerName = strings.TrimSpace(cctx.String("trace-node-name"))
	}
	if len(cfg.DB.Path) > 0 && !filepath.IsAbs(cfg.DB.Path) {
		cfg.DB.Path = filepath.Join(repo, cfg.DB.Path)
	}

	return cfg, cfg.Validate()
}

// setupLogging applies the level and, when a file is configured, tees every log line into a
// rotating file.
func setupLogging(repo string, cfg *config.LogConfig) error {
	if err := logging.SetLogLevel("*", cfg.Level); err != nil {
		return err
	}
	if len(cfg.File) == 0 {
		return nil
	}
	path := cfg.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(repo, path)
	}
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	})
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileCore := zapcore.NewCore(encoder, writer, zap.NewAtomicLevelAt(zapcore.DebugLevel))
	logging.SetPrimaryCore(zapcore.NewTee(logging.GetPrimaryCore(), fileCore))
	return nil
}

func RunMain(ctx context.Context, repo string, cfg *config.Config) error {
	aiTimeout, sessionTTL, requestTimeout, err := cfg.Durations()
	if err != nil {
		return err
	}
	log.Infof("rebalance-gateway current version %s, listen %s", version.UserVersion, cfg.API.ListenAddress)

	handle := userstore.NewHandle(cfg.DB.Path)
	defer func() {
		if err := handle.Close(); err != nil {
			log.Errorf("close user store: %v", err)
		}
	}()
	sessions := auth.NewService(handle, []byte(cfg.Session.JWTSecret), sessionTTL)

	localToken, err := auth.NewLocalToken(repo)
	if err != nil {
		return fmt.Errorf("make token failed:%s", err.Error())
	}
	if err := localToken.SaveToken(); err != nil {
		return err
	}

	requestCfg := types.DefaultConfig()
	requestCfg.RequestTimeout = requestTimeout
	requestCfg.RequestQueueSize = cfg.Provider.QueueSize
	providerStream := providerevent.NewProviderEventStream(ctx, requestCfg, cfg.Provider.Type)
	walletViews := walletlink.NewService(handle, func(session string) walletconnect.Provider {
		return providerStream.RemoteProvider(session)
	}, cfg.Provider.QueueSize)

	gatewayAPIImpl := api.NewGatewayAPIImpl(providerStream, walletViews)
	fullNode := api.PermissionedFullAPI(gatewayAPIImpl)

	aiClient, err := aiclient.NewClient(cfg.AI.URL, aiTimeout)
	if err != nil {
		return fmt.Errorf("ai client: %w", err)
	}

	if err := gwmetrics.SetupMetrics(ctx, cfg.Metrics, gatewayAPIImpl); err != nil {
		return err
	}

	log.Info("Setting up control endpoint at " + cfg.API.ListenAddress)
	router := mux.NewRouter()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register("Gateway", fullNode)
	router.Handle(api.RPCPath, &auth.AuthHandler{Local: localToken, Sessions: sessions, Next: rpcServer})
	httpapi.NewServer(sessions, localToken, handle, aiClient).Register(router)

	handler := (http.Handler)(router)
	log.Infof("trace config %v", cfg.Trace)
	repoter, err := metrics.RegisterJaeger(cfg.Trace.ServerName, cfg.Trace)
	if err != nil {
		return fmt.Errorf("register %s JaegerRepoter to %s failed:%w", cfg.Trace.ServerName, cfg.Trace.JaegerEndpoint, err)
	}
	if repoter != nil {
		log.Infof("register jaeger-tracing exporter to %s, with node-name:%s", cfg.Trace.JaegerEndpoint, cfg.Trace.ServerName)
		defer metrics.UnregisterJaeger(repoter)
		handler = &ochttp.Handler{Handler: handler}
	}

	srv := &http.Server{Handler: handler}
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warnw("received shutdown", "signal", sig)
		case <-ctx.Done():
			log.Warn("received shutdown")
		}

		log.Info("Shutting down...")
		if err := srv.Shutdown(context.TODO()); err != nil {
			log.Errorf("shutting down RPC server failed: %s", err)
		}
	}()

	addr, err := multiaddr.NewMultiaddr(cfg.API.ListenAddress)
	if err != nil {
		return err
	}
	nl, err := manet.Listen(addr)
	if err != nil {
		return err
	}

	log.Infof("start to rpc listen %s", nl.Addr())
	if err = srv.Serve(manet.NetListener(nl)); err != nil && err != http.ErrServerClosed {
		return err
	}

	log.Info("Graceful shutdown successful")
	return nil
}
