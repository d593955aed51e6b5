package walletconnect

import "fmt"

// Account is a wallet address. It is compared by exact equality and never validated here.
type Account string

func (a Account) String() string {
	return string(a)
}

func (a Account) Ptr() *Account {
	return &a
}

// StateKind is the variant of a reconciled wallet view state.
type StateKind int

const (
	Disconnected StateKind = iota
	ProviderMissing
	PendingLink
	Linked
)

var stateKindNames = map[StateKind]string{
	Disconnected:    "disconnected",
	ProviderMissing: "provider_missing",
	PendingLink:     "pending_link",
	Linked:          "linked",
}

func (k StateKind) String() string {
	if name, ok := stateKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("state_kind(%d)", int(k))
}

func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StateKind) UnmarshalText(text []byte) error {
	for kind, name := range stateKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown state kind %q", text)
}

// UIState is what a wallet view shows. Account is set for Linked and PendingLink only.
// Connecting never changes Kind, it only signals progress.
type UIState struct {
	Kind       StateKind
	Account    Account `json:",omitempty"`
	Connecting bool
}

func (s UIState) String() string {
	switch s.Kind {
	case Linked, PendingLink:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Account)
	default:
		return s.Kind.String()
	}
}

// Reconcile derives the view state. The session link always wins over the local observation,
// and ProviderMissing is only reachable when both are empty.
func Reconcile(local, sessionLink *Account, providerPresent, connecting bool) UIState {
	switch {
	case sessionLink != nil:
		return UIState{Kind: Linked, Account: *sessionLink, Connecting: connecting}
	case local != nil:
		return UIState{Kind: PendingLink, Account: *local, Connecting: connecting}
	case !providerPresent:
		return UIState{Kind: ProviderMissing, Connecting: connecting}
	default:
		return UIState{Kind: Disconnected, Connecting: connecting}
	}
}
