package providerevent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/ipfs-force-community/rebalance-gateway/metrics"
	"github.com/ipfs-force-community/rebalance-gateway/types"
)

var log = logging.Logger("provider_stream")

// ProviderEventStream tracks provider bridges per session and relays requests to them.
type ProviderEventStream struct {
	connMgr IProviderConnMgr
	cfg     *types.RequestConfig
	// expectedType is the provider type a bridge must identify as to count as present
	expectedType string
	*types.BaseEventStream

	// notifyLk serialises accounts-changed dispatch so subscribers see notifications in order
	notifyLk sync.Mutex
}

func NewProviderEventStream(ctx context.Context, cfg *types.RequestConfig, expectedType string) *ProviderEventStream {
	return &ProviderEventStream{
		connMgr:         newProviderConnMgr(),
		BaseEventStream: types.NewBaseEventStream(ctx, cfg),
		cfg:             cfg,
		expectedType:    expectedType,
	}
}

func (p *ProviderEventStream) ListenProviderEvent(ctx context.Context, policy *types.ProviderRegisterPolicy) (<-chan *types.RequestEvent, error) {
	session, exit := types.CtxGetSession(ctx)
	if !exit {
		return nil, errors.New("unable to get session in method ListenProviderEvent request")
	}
	if policy == nil {
		return nil, errors.New("register policy is required")
	}

	ip, _ := types.CtxGetIP(ctx)
	out := make(chan *types.RequestEvent, p.cfg.RequestQueueSize)
	providerLog := log.With("session", session).With("ip", ip)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.ProviderTypeKey, policy.ProviderType), tag.Upsert(metrics.IPKey, ip))

	go func() {
		channel := types.NewChannelInfo(ctx, ip, out)
		defer close(out)

		channelInfo := newProviderChannelInfo(channel, policy)
		if err := p.connMgr.addNewConn(session, channelInfo); err != nil {
			providerLog.Errorf("add connection error %v", err)
			return
		}
		providerLog.Infof("add new connections %s", channelInfo.ChannelId)
		stats.Record(ctx, metrics.ProviderRegister.M(1))

		connectBytes, err := json.Marshal(types.ConnectedCompleted{
			ChannelId: channelInfo.ChannelId,
		})
		if err != nil {
			providerLog.Errorf("marshal failed %v", err)
			return
		}

		select {
		case out <- &types.RequestEvent{
			ID:         uuid.New(),
			Method:     types.MethodInitConnect,
			CreateTime: time.Now(),
			Payload:    connectBytes,
			Result:     nil,
		}: // not response
		case <-ctx.Done():
		}

		<-ctx.Done()
		stats.Record(ctx, metrics.ProviderUnregister.M(1))
		if err = p.connMgr.removeConn(session, channelInfo); err != nil {
			providerLog.Errorf("remove connect error %v", err)
		}
	}()
	return out, nil
}

func (p *ProviderEventStream) ResponseProviderEvent(ctx context.Context, resp *types.ResponseEvent) error {
	return p.ResponseEvent(ctx, resp)
}

// NotifyAccountsChanged records what a bridge reports and hands it to every subscriber of the
// session, synchronously and in subscription order.
func (p *ProviderEventStream) NotifyAccountsChanged(ctx context.Context, channelID uuid.UUID, accounts []string) error {
	session, exit := types.CtxGetSession(ctx)
	if !exit {
		return errors.New("unable to get session in method NotifyAccountsChanged request")
	}

	providerType, err := p.connMgr.setAccounts(session, channelID, accounts)
	if err != nil {
		log.Errorf("session %s update accounts %v failed %v", session, accounts, err)
		return err
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.ProviderTypeKey, providerType)},
		metrics.ProviderAccountsChanged.M(1))
	log.Infof("session %s accounts changed %v", session, accounts)

	p.notifyLk.Lock()
	defer p.notifyLk.Unlock()
	for _, fn := range p.connMgr.getHandlers(session) {
		dispatch(fn, accounts)
	}
	return nil
}

func dispatch(fn func([]string), accounts []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("accounts changed subscriber panic: %v", r)
		}
	}()
	fn(append([]string(nil), accounts...))
}

func (p *ProviderEventStream) ListProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error) {
	return p.connMgr.listProviderInfo(ctx)
}

func (p *ProviderEventStream) ListProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error) {
	return p.connMgr.listProviderInfoBySession(ctx, session)
}

// request sends method to the session's bridges of the expected type and decodes the accounts.
func (p *ProviderEventStream) request(ctx context.Context, session, method string) ([]string, error) {
	channels, err := p.connMgr.getChannels(session, p.expectedType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var accounts []string
	err = p.SendRequest(ctx, channels, method, nil, &accounts)
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.MethodKey, method)},
		metrics.ProviderRequest.M(metrics.SinceInMilliseconds(start)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return accounts, nil
}

// RemoteProvider returns the provider seen by wallet views of session.
func (p *ProviderEventStream) RemoteProvider(session string) *RemoteProvider {
	return &RemoteProvider{stream: p, session: session}
}
