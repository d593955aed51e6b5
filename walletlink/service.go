package walletlink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/ipfs-force-community/rebalance-gateway/metrics"
	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
)

var log = logging.Logger("walletlink")

var ErrNotWatching = errors.New("no wallet view mounted for this session")

// ProviderSource returns the injected provider seen by a session.
type ProviderSource func(session string) walletconnect.Provider

type view struct {
	connector *walletconnect.Connector
	observer  *chanObserver
	mountTime time.Time
}

// Service keeps one mounted wallet view per session.
type Service struct {
	handle    *userstore.Handle
	providers ProviderSource
	queueSize int

	lk    sync.Mutex
	views map[string]*view
}

func NewService(handle *userstore.Handle, providers ProviderSource, queueSize int) *Service {
	return &Service{
		handle:    handle,
		providers: providers,
		queueSize: queueSize,
		views:     make(map[string]*view),
	}
}

// Watch mounts the session's wallet view for as long as ctx lives and streams its events,
// starting with the state right after mount.
func (s *Service) Watch(ctx context.Context) (<-chan *WalletEvent, error) {
	session, ok := types.CtxGetSession(ctx)
	if !ok {
		return nil, errors.New("unable to get session in method WalletWatch request")
	}

	observer := newChanObserver(session, s.queueSize)
	connector := walletconnect.NewConnector(
		s.providers(session),
		&userLinker{handle: s.handle, sessionID: session},
		&sessionCache{handle: s.handle, sessionID: session},
	)

	s.lk.Lock()
	if _, ok := s.views[session]; ok {
		s.lk.Unlock()
		return nil, walletconnect.ErrAlreadyMounted
	}
	v := &view{connector: connector, observer: observer, mountTime: time.Now()}
	s.views[session] = v
	s.lk.Unlock()

	if err := connector.Mount(ctx); err != nil {
		s.remove(session, v)
		observer.close()
		return nil, fmt.Errorf("mount wallet view: %w", err)
	}
	// attached after mount so the watcher starts from the settled state only
	state := connector.Store().Observe(observer)
	observer.push(&WalletEvent{Type: EventState, State: &state})
	log.Infow("wallet view mounted", "session", session, "state", state.String())

	go func() {
		<-ctx.Done()
		connector.Unmount()
		s.remove(session, v)
		observer.close()
		log.Infow("wallet view unmounted", "session", session)
	}()

	return observer.out, nil
}

func (s *Service) remove(session string, v *view) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.views[session] == v {
		delete(s.views, session)
	}
}

func (s *Service) get(ctx context.Context) (*view, error) {
	session, ok := types.CtxGetSession(ctx)
	if !ok {
		return nil, errors.New("unable to get session from request")
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.views[session]
	if !ok {
		return nil, ErrNotWatching
	}
	return v, nil
}

// Connect runs the connect action on the session's mounted view.
func (s *Service) Connect(ctx context.Context) (*walletconnect.ConnectResult, error) {
	v, err := s.get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := v.connector.Connect(ctx)
	result := "linked"
	switch {
	case err != nil:
		if kind, ok := walletconnect.KindOf(err); ok {
			result = kind.String()
		} else {
			result = "error"
		}
	case !res.Linked:
		result = "pending_link"
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.ResultKey, result)},
		metrics.WalletConnect.M(1), metrics.WalletConnectDuration.M(metrics.SinceInMilliseconds(start)))
	return res, err
}

func (s *Service) State(ctx context.Context) (walletconnect.UIState, error) {
	v, err := s.get(ctx)
	if err != nil {
		return walletconnect.UIState{}, err
	}
	return v.connector.State(), nil
}

func (s *Service) ListWalletViews(ctx context.Context) ([]*types.WalletViewInfo, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	infos := make([]*types.WalletViewInfo, 0, len(s.views))
	for session, v := range s.views {
		infos = append(infos, &types.WalletViewInfo{
			Session:   session,
			State:     v.connector.State().String(),
			MountTime: v.mountTime,
		})
	}
	return infos, nil
}
