package types

import (
	"time"

	"github.com/google/uuid"
)

// ProviderRegisterPolicy is sent by a provider bridge when it registers for a session.
type ProviderRegisterPolicy struct {
	// ProviderType identifies the injected provider, e.g. "metamask".
	ProviderType string
	// Accounts is what the bridge currently exposes, reported for diagnostics only.
	Accounts []string
}

type ProviderDetail struct {
	Session       string
	Subscribers   int
	ConnectStates []ConnectState
}

type ConnectState struct {
	ChannelID    uuid.UUID
	ProviderType string
	Accounts     []string
	IP           string
	RequestCount int
	CreateTime   time.Time
}

// WalletViewInfo describes one mounted wallet view.
type WalletViewInfo struct {
	Session   string
	State     string
	MountTime time.Time
}
