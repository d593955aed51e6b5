package walletconnect

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures a wallet view reports to its observers.
type ErrorKind int

const (
	// ProviderAbsent means no provider was detected when connect was attempted.
	ProviderAbsent ErrorKind = iota + 1
	// ProviderRejected means the user declined the prompt or the provider returned no account.
	ProviderRejected
	// PersistenceError means the account-link call failed. The in-browser connection is kept.
	PersistenceError
	// NotificationError means a passive background query failed. It is logged, never surfaced.
	NotificationError
)

func (k ErrorKind) String() string {
	switch k {
	case ProviderAbsent:
		return "provider_absent"
	case ProviderRejected:
		return "provider_rejected"
	case PersistenceError:
		return "persistence_error"
	case NotificationError:
		return "notification_error"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(text []byte) error {
	for _, kind := range []ErrorKind{ProviderAbsent, ProviderRejected, PersistenceError, NotificationError} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Surfaced reports whether errors of this kind are shown to the user.
func (k ErrorKind) Surfaced() bool {
	return k != NotificationError
}

// Retryable reports whether re-invoking connect may succeed without outside action.
func (k ErrorKind) Retryable() bool {
	return k == ProviderRejected || k == PersistenceError
}

type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind, true
	}
	return 0, false
}

var (
	ErrConnectInProgress = errors.New("wallet connect already in progress")
	ErrAlreadyMounted    = errors.New("wallet view already mounted")
	ErrUnmounted         = errors.New("wallet view unmounted")
)
