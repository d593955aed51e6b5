package walletconnect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	locals := []*Account{nil, accountA.Ptr()}
	sessions := []*Account{nil, accountB.Ptr()}

	t.Run("total and session dominant", func(t *testing.T) {
		for _, local := range locals {
			for _, session := range sessions {
				for _, present := range []bool{false, true} {
					for _, connecting := range []bool{false, true} {
						state := Reconcile(local, session, present, connecting)
						require.Contains(t, []StateKind{Linked, PendingLink, ProviderMissing, Disconnected}, state.Kind)
						require.Equal(t, connecting, state.Connecting)

						switch {
						case session != nil:
							require.Equal(t, UIState{Kind: Linked, Account: accountB, Connecting: connecting}, state)
						case local != nil:
							require.Equal(t, UIState{Kind: PendingLink, Account: accountA, Connecting: connecting}, state)
						case !present:
							require.Equal(t, ProviderMissing, state.Kind)
							require.Empty(t, state.Account)
						default:
							require.Equal(t, Disconnected, state.Kind)
							require.Empty(t, state.Account)
						}
					}
				}
			}
		}
	})

	t.Run("connecting never changes the variant", func(t *testing.T) {
		for _, local := range locals {
			for _, session := range sessions {
				for _, present := range []bool{false, true} {
					idle := Reconcile(local, session, present, false)
					busy := Reconcile(local, session, present, true)
					require.Equal(t, idle.Kind, busy.Kind)
					require.Equal(t, idle.Account, busy.Account)
				}
			}
		}
	})

	t.Run("provider missing only without any account", func(t *testing.T) {
		require.Equal(t, PendingLink, Reconcile(accountA.Ptr(), nil, false, false).Kind)
		require.Equal(t, Linked, Reconcile(nil, accountB.Ptr(), false, false).Kind)
		require.Equal(t, ProviderMissing, Reconcile(nil, nil, false, false).Kind)
	})
}

func TestUIStateJSON(t *testing.T) {
	data, err := json.Marshal(UIState{Kind: Linked, Account: accountA})
	require.NoError(t, err)
	require.JSONEq(t, `{"Kind":"linked","Account":"`+string(accountA)+`","Connecting":false}`, string(data))

	var state UIState
	require.NoError(t, json.Unmarshal([]byte(`{"Kind":"provider_missing","Connecting":true}`), &state))
	require.Equal(t, UIState{Kind: ProviderMissing, Connecting: true}, state)

	require.Error(t, json.Unmarshal([]byte(`{"Kind":"bogus"}`), &state))
	require.Equal(t, "linked("+string(accountA)+")", UIState{Kind: Linked, Account: accountA}.String())
}

func TestErrorKind(t *testing.T) {
	require.True(t, ProviderAbsent.Surfaced())
	require.True(t, PersistenceError.Surfaced())
	require.False(t, NotificationError.Surfaced())
	require.False(t, ProviderAbsent.Retryable())
	require.True(t, ProviderRejected.Retryable())

	err := newError(PersistenceError, "failed to update wallet address", errMock)
	require.ErrorIs(t, err, errMock)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, PersistenceError, kind)

	_, ok = KindOf(errMock)
	require.False(t, ok)
}
