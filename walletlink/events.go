package walletlink

import (
	"sync"

	"github.com/ipfs-force-community/rebalance-gateway/walletconnect"
)

type EventType string

const (
	EventState      EventType = "state"
	EventError      EventType = "error"
	EventDisconnect EventType = "disconnect"
)

// WalletEvent is what a watching UI receives.
type WalletEvent struct {
	Type  EventType
	State *walletconnect.UIState `json:",omitempty"`
	Error *ErrorEvent            `json:",omitempty"`
}

type ErrorEvent struct {
	Kind walletconnect.ErrorKind
	Msg  string
}

var _ walletconnect.Observer = (*chanObserver)(nil)

// chanObserver forwards view events to the watcher. Sends never block; a full queue drops the
// event, the next state event carries the whole state again.
type chanObserver struct {
	session string

	lk     sync.Mutex
	out    chan *WalletEvent
	closed bool
}

func newChanObserver(session string, size int) *chanObserver {
	return &chanObserver{session: session, out: make(chan *WalletEvent, size)}
}

func (o *chanObserver) push(event *WalletEvent) {
	o.lk.Lock()
	defer o.lk.Unlock()
	if o.closed {
		return
	}
	select {
	case o.out <- event:
	default:
		log.Warnf("session %s wallet event queue full, drop %s event", o.session, event.Type)
	}
}

func (o *chanObserver) close() {
	o.lk.Lock()
	defer o.lk.Unlock()
	if !o.closed {
		o.closed = true
		close(o.out)
	}
}

func (o *chanObserver) OnStateChanged(state walletconnect.UIState) {
	o.push(&WalletEvent{Type: EventState, State: &state})
}

func (o *chanObserver) OnError(kind walletconnect.ErrorKind, msg string) {
	o.push(&WalletEvent{Type: EventError, Error: &ErrorEvent{Kind: kind, Msg: msg}})
}

func (o *chanObserver) OnDisconnect() {
	o.push(&WalletEvent{Type: EventDisconnect})
}
