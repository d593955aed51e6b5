package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("userstore")

var (
	userPrefix    = []byte("user:")
	emailPrefix   = []byte("email:")
	sessionPrefix = []byte("session:")
)

func userKey(id string) []byte {
	return append(append([]byte{}, userPrefix...), id...)
}

func emailKey(email string) []byte {
	return append(append([]byte{}, emailPrefix...), strings.ToLower(strings.TrimSpace(email))...)
}

func sessionKey(id string) []byte {
	return append(append([]byte{}, sessionPrefix...), id...)
}

// Store keeps users and sessions in badger, values JSON encoded.
type Store struct {
	db *badger.DB
}

// Open opens the database at path. An empty path opens an in-memory database.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if len(path) == 0 {
		opts = opts.WithInMemory(true)
	}
	opts.Compression = options.Snappy
	opts.Logger = &badgerLogger{log}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open user store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the store still serves reads.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("user store closed")
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// CreateUser stores u and its email index. The email must not be in use.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(u.Email))
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(userKey(u.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey(u.Email), []byte(u.ID))
	})
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return notFound(err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserWallet overwrites the wallet address linked to the user.
func (s *Store) SetUserWallet(ctx context.Context, userID, address string) (*User, error) {
	var user User
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, userKey(userID), &user); err != nil {
			return err
		}
		user.WalletAddress = &address
		user.UpdatedAt = time.Now()
		return setJSON(txn, userKey(userID), &user, 0)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PutSession stores the session until it expires.
func (s *Store) PutSession(ctx context.Context, session *Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		if ttl = time.Until(session.ExpiresAt); ttl <= 0 {
			return fmt.Errorf("session %s already expired", session.ID)
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, sessionKey(session.ID), session, ttl)
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(id), &session)
	})
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

// SetSessionWallet refreshes the wallet address cached on the session.
func (s *Store) SetSessionWallet(ctx context.Context, id, address string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var session Session
		if err := getJSON(txn, sessionKey(id), &session); err != nil {
			return err
		}
		if session.Expired(time.Now()) {
			return ErrNotFound
		}
		session.WalletAddress = &address
		return setJSON(txn, sessionKey(id), &session, time.Until(session.ExpiresAt))
	})
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(id))
	})
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return notFound(err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	entry := badger.NewEntry(key, data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return txn.SetEntry(entry)
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// badgerLogger routes badger's own logging into the package logger.
type badgerLogger struct {
	*logging.ZapEventLogger
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
