package walletconnect

import (
	"sync"
)

// Observer receives what a wallet view needs to render. Callbacks are delivered in order, one
// at a time. They may read the Store but must not mutate it.
type Observer interface {
	OnStateChanged(state UIState)
	OnError(kind ErrorKind, msg string)
	OnDisconnect()
}

// Store holds the locally observed account and the cached session link for one mounted view.
type Store struct {
	lk         sync.Mutex
	local      *Account
	session    *Account
	present    bool
	connecting bool
	closed     bool
	state      UIState

	// emitLk keeps observer callbacks in mutation order without holding lk while they run.
	emitLk    sync.Mutex
	observers []Observer
}

func NewStore(observers ...Observer) *Store {
	s := &Store{observers: observers}
	s.state = Reconcile(nil, nil, false, false)
	return s
}

func (s *Store) State() UIState {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.state
}

func (s *Store) Local() *Account {
	s.lk.Lock()
	defer s.lk.Unlock()
	return copyAccount(s.local)
}

func (s *Store) SessionLink() *Account {
	s.lk.Lock()
	defer s.lk.Unlock()
	return copyAccount(s.session)
}

func (s *Store) ProviderPresent() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.present
}

func (s *Store) Closed() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.closed
}

// Observe adds o and returns the state it starts from. No notification is in flight while o is
// added, so o sees every change after the returned state and nothing before it.
func (s *Store) Observe(o Observer) UIState {
	s.emitLk.Lock()
	defer s.emitLk.Unlock()
	s.observers = append(s.observers, o)
	return s.State()
}

func (s *Store) setProviderPresent(present bool) {
	s.mutate(func() { s.present = present }, nil)
}

func (s *Store) setLocal(account Account) bool {
	return s.mutate(func() { s.local = &account }, nil)
}

// setLocalIfEmpty is used by the passive probe so a late answer never overwrites a newer
// change notification.
func (s *Store) setLocalIfEmpty(account Account) bool {
	return s.mutate(func() {
		if s.local == nil {
			s.local = &account
		}
	}, nil)
}

func (s *Store) clearLocal() bool {
	return s.mutate(func() { s.local = nil }, func(o Observer) { o.OnDisconnect() })
}

func (s *Store) setSessionLink(account Account) bool {
	return s.mutate(func() { s.session = &account }, nil)
}

func (s *Store) beginConnect() error {
	return s.apply(func() error {
		if s.connecting {
			return ErrConnectInProgress
		}
		s.connecting = true
		return nil
	}, nil)
}

func (s *Store) endConnect() {
	s.mutate(func() { s.connecting = false }, nil)
}

func (s *Store) reportError(kind ErrorKind, msg string) {
	if !kind.Surfaced() {
		log.Warnf("%s: %s", kind, msg)
		return
	}
	s.mutate(func() {}, func(o Observer) { o.OnError(kind, msg) })
}

// teardown detaches the store. Every later mutation is ignored.
func (s *Store) teardown() {
	s.lk.Lock()
	s.closed = true
	s.lk.Unlock()
}

// mutate applies fn, recomputes the state and notifies observers of the change and of the
// optional extra event. It returns false when the store has been torn down.
func (s *Store) mutate(fn func(), event func(Observer)) bool {
	return s.apply(func() error {
		fn()
		return nil
	}, event) == nil
}

// apply takes emitLk before lk so observers reading the Store never wait on a mutation
// that waits on them.
func (s *Store) apply(fn func() error, event func(Observer)) error {
	s.emitLk.Lock()
	defer s.emitLk.Unlock()

	s.lk.Lock()
	if s.closed {
		s.lk.Unlock()
		return ErrUnmounted
	}
	if err := fn(); err != nil {
		s.lk.Unlock()
		return err
	}
	prev := s.state
	s.state = Reconcile(s.local, s.session, s.present, s.connecting)
	state := s.state
	s.lk.Unlock()

	if state != prev {
		s.emit(func(o Observer) { o.OnStateChanged(state) })
	}
	if event != nil {
		s.emit(event)
	}
	return nil
}

func (s *Store) emit(fn func(Observer)) {
	for _, o := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("wallet view observer panic: %v", r)
				}
			}()
			fn(o)
		}()
	}
}

func copyAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}
