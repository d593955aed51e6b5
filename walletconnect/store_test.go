package walletconnect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// readingObserver reads the store back from inside every callback.
type readingObserver struct {
	store *Store
	lk    sync.Mutex
	seen  []UIState
}

func (o *readingObserver) OnStateChanged(state UIState) {
	current := o.store.State()
	_ = o.store.Local()
	_ = o.store.SessionLink()
	o.lk.Lock()
	o.seen = append(o.seen, current)
	o.lk.Unlock()
}

func (o *readingObserver) OnError(kind ErrorKind, msg string) {}

func (o *readingObserver) OnDisconnect() {
	_ = o.store.State()
}

func TestStoreConcurrentMutations(t *testing.T) {
	t.Run("observer reads while others mutate", func(t *testing.T) {
		observer := &readingObserver{}
		store := NewStore(observer)
		observer.store = store

		var wg sync.WaitGroup
		for _, account := range []Account{accountA, accountB} {
			wg.Add(1)
			go func(account Account) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					store.setLocal(account)
					store.clearLocal()
				}
			}(account)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("mutations did not finish while the observer read the store")
		}

		observer.lk.Lock()
		defer observer.lk.Unlock()
		require.NotEmpty(t, observer.seen)
		require.Equal(t, UIState{Kind: ProviderMissing}, store.State())
	})

	t.Run("notifications follow mutation order", func(t *testing.T) {
		rec := &recorder{}
		store := NewStore(rec)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					store.setLocal(accountA)
					store.clearLocal()
				}
			}()
		}
		wg.Wait()

		rec.lk.Lock()
		defer rec.lk.Unlock()
		require.NotEmpty(t, rec.states)
		for i := 1; i < len(rec.states); i++ {
			require.NotEqual(t, rec.states[i-1], rec.states[i], "state %d repeats the previous one", i)
		}
		require.Equal(t, store.State(), rec.states[len(rec.states)-1])
	})
}

func TestStoreObserve(t *testing.T) {
	store := NewStore()
	store.setProviderPresent(true)
	store.setSessionLink(accountB)

	rec := &recorder{}
	state := store.Observe(rec)
	require.Equal(t, UIState{Kind: Linked, Account: accountB}, state)

	rec.lk.Lock()
	require.Empty(t, rec.states)
	rec.lk.Unlock()

	store.setLocal(accountA)
	store.clearLocal()
	rec.lk.Lock()
	defer rec.lk.Unlock()
	// the link keeps the state, only the disconnect is reported
	require.Empty(t, rec.states)
	require.Equal(t, 1, rec.disconnects)
}
