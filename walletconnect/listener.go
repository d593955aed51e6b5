package walletconnect

// accountsListener applies provider change notifications to the store. It never touches the
// session link: a different in-browser account does not relink until connect is invoked again.
type accountsListener struct {
	store *Store
}

func (l *accountsListener) handle(accounts []Account) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("accounts changed handler panic: %v", r)
		}
	}()

	if len(accounts) == 0 {
		if l.store.clearLocal() {
			log.Info("wallet disconnected")
		}
		return
	}
	l.store.setLocal(accounts[0])
}
