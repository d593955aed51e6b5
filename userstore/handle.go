package userstore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Handle opens the store on first use and hands the same Store to every caller afterwards.
// Concurrent first callers share one in-flight open; a failed open is retried by the next call.
type Handle struct {
	path  string
	group singleflight.Group

	lk    sync.Mutex
	store *Store
	opens int
}

func NewHandle(path string) *Handle {
	return &Handle{path: path}
}

func (h *Handle) Get(ctx context.Context) (*Store, error) {
	if store := h.current(); store != nil {
		return store, nil
	}

	ch := h.group.DoChan("open", func() (interface{}, error) {
		if store := h.current(); store != nil {
			return store, nil
		}
		store, err := Open(h.path)
		if err != nil {
			log.Errorf("open user store failed: %v", err)
			return nil, err
		}
		h.lk.Lock()
		h.store = store
		h.opens++
		h.lk.Unlock()
		log.Infof("user store opened at %q", h.path)
		return store, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Store), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) current() *Store {
	h.lk.Lock()
	defer h.lk.Unlock()
	return h.store
}

// Close closes the store if it was opened.
func (h *Handle) Close() error {
	h.lk.Lock()
	store := h.store
	h.store = nil
	h.lk.Unlock()
	if store == nil {
		return nil
	}
	return store.Close()
}
