package walletconnect

import (
	"context"
	"errors"
	"sync"
)

const (
	accountA = Account("0xAAA0000000000000000000000000000000001111")
	accountB = Account("0xBBB0000000000000000000000000000000002222")
	accountC = Account("0xCCC0000000000000000000000000000000003333")
)

type fakeProvider struct {
	lk sync.Mutex

	present       bool
	authorized    []Account
	authorizedErr error
	requested     []Account
	requestErr    error
	onRequest     func()

	nextID       int
	handlers     map[int]func([]Account)
	subscribed   int
	unsubscribed int
	authCalls    int
}

func newFakeProvider(present bool) *fakeProvider {
	return &fakeProvider{present: present, handlers: make(map[int]func([]Account))}
}

func (f *fakeProvider) IsPresent(ctx context.Context) bool {
	f.lk.Lock()
	defer f.lk.Unlock()
	return f.present
}

func (f *fakeProvider) AuthorizedAccounts(ctx context.Context) ([]Account, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.authCalls++
	return f.authorized, f.authorizedErr
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]Account, error) {
	f.lk.Lock()
	hook := f.onRequest
	accounts, err := f.requested, f.requestErr
	f.lk.Unlock()
	if hook != nil {
		hook()
	}
	return accounts, err
}

func (f *fakeProvider) SubscribeAccountsChanged(handler func([]Account)) (Subscription, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = handler
	f.subscribed++
	return &fakeSubscription{provider: f, id: id}, nil
}

// emit delivers a change to every registered handler, like the provider would.
func (f *fakeProvider) emit(accounts ...Account) {
	f.lk.Lock()
	handlers := make([]func([]Account), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.lk.Unlock()
	for _, h := range handlers {
		h(accounts)
	}
}

func (f *fakeProvider) handlerCount() int {
	f.lk.Lock()
	defer f.lk.Unlock()
	return len(f.handlers)
}

type fakeSubscription struct {
	provider *fakeProvider
	id       int
}

func (s *fakeSubscription) Unsubscribe() {
	s.provider.lk.Lock()
	defer s.provider.lk.Unlock()
	delete(s.provider.handlers, s.id)
	s.provider.unsubscribed++
}

type fakeLinker struct {
	lk     sync.Mutex
	linked []Account
	err    error
	onLink func(Account)
}

func (l *fakeLinker) LinkAccount(ctx context.Context, account Account) error {
	l.lk.Lock()
	l.linked = append(l.linked, account)
	hook, err := l.onLink, l.err
	l.lk.Unlock()
	if hook != nil {
		hook(account)
	}
	return err
}

func (l *fakeLinker) calls() []Account {
	l.lk.Lock()
	defer l.lk.Unlock()
	return append([]Account(nil), l.linked...)
}

type fakeSession struct {
	lk            sync.Mutex
	authenticated bool
	link          *Account
	readErr       error
	setErr        error
}

func (s *fakeSession) Authenticated(ctx context.Context) bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.authenticated
}

func (s *fakeSession) SessionLink(ctx context.Context) (*Account, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return copyAccount(s.link), s.readErr
}

func (s *fakeSession) SetSessionLink(ctx context.Context, account Account) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.link = &account
	return nil
}

type recordedError struct {
	kind ErrorKind
	msg  string
}

type recorder struct {
	lk          sync.Mutex
	states      []UIState
	errs        []recordedError
	disconnects int
}

func (r *recorder) OnStateChanged(state UIState) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) OnError(kind ErrorKind, msg string) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.errs = append(r.errs, recordedError{kind: kind, msg: msg})
}

func (r *recorder) OnDisconnect() {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.disconnects++
}

func (r *recorder) errorKinds() []ErrorKind {
	r.lk.Lock()
	defer r.lk.Unlock()
	var kinds []ErrorKind
	for _, e := range r.errs {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

func (r *recorder) disconnectCount() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return r.disconnects
}

func (r *recorder) stateLog() []UIState {
	r.lk.Lock()
	defer r.lk.Unlock()
	return append([]UIState(nil), r.states...)
}

type panicObserver struct{}

func (panicObserver) OnStateChanged(UIState) { panic("observer broke") }

func (panicObserver) OnError(ErrorKind, string) { panic("observer broke") }

func (panicObserver) OnDisconnect() { panic("observer broke") }

var errMock = errors.New("mock error")
