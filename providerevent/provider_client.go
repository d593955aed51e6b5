package providerevent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ipfs-force-community/rebalance-gateway/types"
)

// ProviderEventClient is the bridge side: it registers an injected provider for a session and
// answers the account requests the gateway pushes down.
type ProviderEventClient struct {
	processor    types.IProviderHandler
	client       IProviderEventAPI
	providerType string
	log          *zap.SugaredLogger

	lk      sync.Mutex
	channel uuid.UUID
	readyCh chan struct{}
}

// NewProviderEventClient forwards account changes of processor, when it reports them, for as
// long as ctx lives.
func NewProviderEventClient(ctx context.Context, process types.IProviderHandler, client IProviderEventAPI, providerType string, log *zap.SugaredLogger) *ProviderEventClient {
	e := &ProviderEventClient{
		processor:    process,
		client:       client,
		providerType: providerType,
		log:          log,
		readyCh:      make(chan struct{}, 1),
	}
	if notifier, ok := process.(types.IAccountsNotifier); ok {
		notifier.OnAccountsChanged(func(accounts []string) {
			if ctx.Err() != nil {
				return
			}
			if err := e.NotifyAccountsChanged(ctx, accounts); err != nil {
				e.log.Errorf("notify accounts changed error %s", err)
			}
		})
	}
	return e
}

func (e *ProviderEventClient) NotifyAccountsChanged(ctx context.Context, accounts []string) error {
	if accounts == nil {
		accounts = []string{}
	}
	return e.client.NotifyAccountsChanged(ctx, e.channelID(), accounts)
}

func (e *ProviderEventClient) channelID() uuid.UUID {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.channel
}

func (e *ProviderEventClient) ListenProviderRequest(ctx context.Context) {
	for {
		if err := e.listenProviderRequestOnce(ctx); err != nil {
			e.log.Errorf("listen provider event errored: %s", err)
		} else {
			e.log.Warn("listenProviderRequestOnce quit, try again")
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			e.log.Warnf("not restarting listenProviderRequestOnce: context error: %s", ctx.Err())
			return
		}
		e.log.Info("restarting listenProviderRequestOnce")
		// try clear ready channel
		select {
		case <-e.readyCh:
		default:
		}
	}
}

func (e *ProviderEventClient) WaitReady(ctx context.Context) {
	select {
	case <-e.readyCh:
	case <-ctx.Done():
	}
}

func (e *ProviderEventClient) listenProviderRequestOnce(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	accounts, err := e.processor.Accounts(ctx)
	if err != nil {
		e.log.Warnf("read current accounts error %s", err)
	}
	policy := &types.ProviderRegisterPolicy{
		ProviderType: e.providerType,
		Accounts:     accounts,
	}
	e.log.Infow("", "provider type", e.providerType, "accounts", accounts)
	eventCh, err := e.client.ListenProviderEvent(ctx, policy)
	if err != nil {
		// Retry is handled by caller
		return fmt.Errorf("listenProviderRequestOnce ListenProviderEvent call failed: %w", err)
	}

	for event := range eventCh {
		switch event.Method {
		case types.MethodInitConnect:
			req := types.ConnectedCompleted{}
			if err := json.Unmarshal(event.Payload, &req); err != nil {
				e.log.Errorf("init connect error %s", err)
				continue
			}
			e.lk.Lock()
			e.channel = req.ChannelId
			e.lk.Unlock()
			e.log.Infof("connect to server success %v", req.ChannelId)
			select {
			case e.readyCh <- struct{}{}:
			default:
			}
			// do not response
		case types.MethodAccounts:
			go e.accounts(ctx, event.ID, e.processor.Accounts)
		case types.MethodRequestAccounts:
			go e.accounts(ctx, event.ID, e.processor.RequestAccounts)
		default:
			e.log.Errorf("unexpect provider event type %s", event.Method)
		}
	}

	return nil
}

func (e *ProviderEventClient) accounts(ctx context.Context, id uuid.UUID, fetch func(context.Context) ([]string, error)) {
	accounts, err := fetch(ctx)
	if err != nil {
		e.log.Errorf("provider request error %s", err)
		e.error(ctx, id, err)
		return
	}
	if accounts == nil {
		accounts = []string{}
	}
	e.value(ctx, id, accounts)
}

func (e *ProviderEventClient) value(ctx context.Context, id uuid.UUID, val interface{}) {
	respBytes, err := json.Marshal(val)
	if err != nil {
		e.log.Errorf("marshal response error %s", err)
		e.error(ctx, id, err)
		return
	}
	err = e.client.ResponseProviderEvent(ctx, &types.ResponseEvent{
		ID:      id,
		Payload: respBytes,
		Error:   "",
	})
	if err != nil {
		e.log.Errorf("response error %v", err)
	}
}

func (e *ProviderEventClient) error(ctx context.Context, id uuid.UUID, err error) {
	err = e.client.ResponseProviderEvent(ctx, &types.ResponseEvent{
		ID:      id,
		Payload: nil,
		Error:   err.Error(),
	})
	if err != nil {
		e.log.Errorf("response error %v", err)
	}
}
