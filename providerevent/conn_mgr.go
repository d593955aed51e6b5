package providerevent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ipfs-force-community/rebalance-gateway/types"
)

type providerChannelInfo struct {
	*types.ChannelInfo
	providerType string
	// accounts last reported by the bridge
	accounts []string
}

func newProviderChannelInfo(channelInfo *types.ChannelInfo, policy *types.ProviderRegisterPolicy) *providerChannelInfo {
	return &providerChannelInfo{
		ChannelInfo:  channelInfo,
		providerType: policy.ProviderType,
		accounts:     append([]string(nil), policy.Accounts...),
	}
}

type accountsHandler struct {
	id uint64
	fn func(accounts []string)
}

type SessionInfo struct {
	session     string
	connections map[uuid.UUID]*providerChannelInfo
	// handlers are kept in subscription order
	handlers []accountsHandler
}

func (s *SessionInfo) empty() bool {
	return len(s.connections) == 0 && len(s.handlers) == 0
}

type IProviderConnMgr interface {
	addNewConn(string, *providerChannelInfo) error
	getConn(session string, channelID uuid.UUID) (*providerChannelInfo, error)
	removeConn(string, *providerChannelInfo) error
	setAccounts(session string, channelID uuid.UUID, accounts []string) (string, error)
	getChannels(session, providerType string) ([]*types.ChannelInfo, error)
	hasProviderChannel(session, providerType string) bool

	subscribe(session string, fn func([]string)) uint64
	unsubscribe(session string, id uint64)
	getHandlers(session string) []func([]string)

	listProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error)
	listProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error)
}

var _ IProviderConnMgr = (*providerConnMgr)(nil)

type providerConnMgr struct {
	infoLk       sync.Mutex
	sessionInfos map[string]*SessionInfo
	nextID       uint64
}

func newProviderConnMgr() *providerConnMgr {
	return &providerConnMgr{
		sessionInfos: make(map[string]*SessionInfo),
	}
}

// sessionLocked returns the entry for session, creating it when missing. infoLk must be held.
func (p *providerConnMgr) sessionLocked(session string) *SessionInfo {
	info, ok := p.sessionInfos[session]
	if !ok {
		info = &SessionInfo{
			session:     session,
			connections: make(map[uuid.UUID]*providerChannelInfo),
		}
		p.sessionInfos[session] = info
	}
	return info
}

func (p *providerConnMgr) addNewConn(session string, channel *providerChannelInfo) error {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	info := p.sessionLocked(session)
	info.connections[channel.ChannelId] = channel

	log.Infow("add provider connection", "channel", channel.ChannelId.String(),
		"session", session,
		"providerType", channel.providerType,
		"accounts", channel.accounts,
	)
	return nil
}

func (p *providerConnMgr) getConn(session string, channelID uuid.UUID) (*providerChannelInfo, error) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	if info, ok := p.sessionInfos[session]; ok {
		if conn, ok := info.connections[channelID]; ok {
			return conn, nil
		}
	}

	return nil, fmt.Errorf("no connect found for session %s and channelID %s", session, channelID)
}

func (p *providerConnMgr) removeConn(session string, channel *providerChannelInfo) error {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	if info, ok := p.sessionInfos[session]; ok {
		delete(info.connections, channel.ChannelId)
		if info.empty() {
			delete(p.sessionInfos, session)
		}
	}

	log.Infof("session %s remove provider connection %s", session, channel.ChannelId)
	return nil
}

// setAccounts records the accounts a connection reports and returns its provider type.
func (p *providerConnMgr) setAccounts(session string, channelID uuid.UUID, accounts []string) (string, error) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	if info, ok := p.sessionInfos[session]; ok {
		if conn, ok := info.connections[channelID]; ok {
			conn.accounts = append([]string(nil), accounts...)
			return conn.providerType, nil
		}
	}
	return "", fmt.Errorf("channel %s not found ", channelID.String())
}

// getChannels returns the session's connections of providerType, newest first.
func (p *providerConnMgr) getChannels(session, providerType string) ([]*types.ChannelInfo, error) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	var channels []*types.ChannelInfo
	if info, ok := p.sessionInfos[session]; ok {
		for _, conn := range info.connections {
			if conn.providerType == providerType {
				channels = append(channels, conn.ChannelInfo)
			}
		}
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no %s provider connected for session %s", providerType, session)
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].CreateTime.After(channels[j].CreateTime)
	})
	return channels, nil
}

func (p *providerConnMgr) hasProviderChannel(session, providerType string) bool {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	if info, ok := p.sessionInfos[session]; ok {
		for _, conn := range info.connections {
			if conn.providerType == providerType {
				return true
			}
		}
	}
	return false
}

func (p *providerConnMgr) subscribe(session string, fn func([]string)) uint64 {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	p.nextID++
	info := p.sessionLocked(session)
	info.handlers = append(info.handlers, accountsHandler{id: p.nextID, fn: fn})
	return p.nextID
}

func (p *providerConnMgr) unsubscribe(session string, id uint64) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	info, ok := p.sessionInfos[session]
	if !ok {
		return
	}
	for i, h := range info.handlers {
		if h.id == id {
			info.handlers = append(info.handlers[:i:i], info.handlers[i+1:]...)
			break
		}
	}
	if info.empty() {
		delete(p.sessionInfos, session)
	}
}

func (p *providerConnMgr) getHandlers(session string) []func([]string) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	info, ok := p.sessionInfos[session]
	if !ok {
		return nil
	}
	fns := make([]func([]string), 0, len(info.handlers))
	for _, h := range info.handlers {
		fns = append(fns, h.fn)
	}
	return fns
}

func (info *SessionInfo) detail() *types.ProviderDetail {
	detail := &types.ProviderDetail{
		Session:       info.session,
		Subscribers:   len(info.handlers),
		ConnectStates: []types.ConnectState{},
	}
	for channelID, conn := range info.connections {
		detail.ConnectStates = append(detail.ConnectStates, types.ConnectState{
			ChannelID:    channelID,
			ProviderType: conn.providerType,
			Accounts:     append([]string(nil), conn.accounts...),
			IP:           conn.Ip,
			RequestCount: len(conn.OutBound),
			CreateTime:   conn.CreateTime,
		})
	}
	return detail
}

func (p *providerConnMgr) listProviderInfo(ctx context.Context) ([]*types.ProviderDetail, error) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	var details []*types.ProviderDetail
	for _, info := range p.sessionInfos {
		details = append(details, info.detail())
	}
	return details, nil
}

func (p *providerConnMgr) listProviderInfoBySession(ctx context.Context, session string) (*types.ProviderDetail, error) {
	p.infoLk.Lock()
	defer p.infoLk.Unlock()

	if info, ok := p.sessionInfos[session]; ok {
		return info.detail(), nil
	}
	return nil, fmt.Errorf("session %s not exist", session)
}
