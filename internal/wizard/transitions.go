package wizard

import "context"

// handler runs one transition. st is the state observed when the event was
// accepted. Handlers run with the controller lock held.
type handler func(c *Controller, ctx context.Context, st State, ev Event)

type transitionTable map[Screen]map[EventKind]handler

func (t transitionTable) lookup(screen Screen, kind EventKind) (handler, bool) {
	row, ok := t[screen]
	if !ok {
		return nil, false
	}
	h, ok := row[kind]
	return h, ok
}

// Accepts reports whether the table has a transition for kind on screen.
func (c *Controller) Accepts(screen Screen, kind EventKind) bool {
	_, ok := c.table.lookup(screen, kind)
	return ok
}

func goTo(screen Screen) handler {
	return func(c *Controller, _ context.Context, _ State, _ Event) {
		c.navigate(screen)
	}
}

// storjBack leaves the login and registration screens for the folder screen
// matching the selection.
func storjBack(c *Controller, _ context.Context, st State, _ Event) {
	if st.Sia {
		c.navigate(FolderSelectedBoth)
		return
	}
	c.navigate(FolderSelectedA)
}

func selectBackends(storj, sia bool, next Screen) handler {
	return func(c *Controller, _ context.Context, _ State, _ Event) {
		c.store.apply("select-backend", func(s *State) {
			s.Storj = storj
			s.Sia = sia
		})
		c.navigate(next)
	}
}

func changeFolder(c *Controller, _ context.Context, _ State, ev Event) {
	change, ok := ev.(ChangeFolder)
	if !ok {
		return
	}
	folder, ok := NormalizeFolder(change.Path)
	if !ok {
		c.logger.Debug().Str("path", change.Path).Msg("Ignored sync folder that is not absolute")
		return
	}
	c.store.apply("change-folder", func(s *State) {
		s.SyncFolder = folder
	})
}

func chooseFolder(c *Controller, ctx context.Context, _ State, _ Event) {
	c.chooseFolder(ctx)
}

func stopAndChooseBackend(c *Controller, ctx context.Context, _ State, _ Event) {
	c.stopSyncApps(ctx)
}

func submitLogin(c *Controller, ctx context.Context, _ State, ev Event) {
	finish, ok := ev.(Finish)
	if !ok {
		c.logger.Warn().Msg("Login submitted without credentials")
		return
	}
	c.login(ctx, finish.Credentials)
}

func submitRegistration(c *Controller, ctx context.Context, _ State, ev Event) {
	submit, ok := ev.(SubmitRegistration)
	if !ok {
		c.logger.Warn().Msg("Registration submitted without account details")
		return
	}
	c.register(ctx, submit.Registration)
}

func walletBack(c *Controller, _ context.Context, st State, _ Event) {
	if st.Storj {
		c.navigate(LoginA)
		return
	}
	c.navigate(FolderSelectedB)
}

func newTransitionTable() transitionTable {
	folderRow := func(next handler) map[EventKind]handler {
		return map[EventKind]handler{
			EventChooseFolder: chooseFolder,
			EventChangeFolder: changeFolder,
			EventBack:         stopAndChooseBackend,
			EventNext:         next,
		}
	}

	closeWindow := func(c *Controller, _ context.Context, _ State, _ Event) {
		c.closeWindow()
	}

	return transitionTable{
		Welcome: {
			EventNext: func(c *Controller, ctx context.Context, _ State, _ Event) {
				c.checkDependency(ctx)
			},
		},
		ChooseBackend: {
			EventSelectStorj: selectBackends(true, false, FolderSelectedA),
			EventSelectSia:   selectBackends(false, true, FolderSelectedB),
			EventSelectBoth:  selectBackends(true, true, FolderSelectedBoth),
		},
		FolderSelectedA:    folderRow(goTo(LoginA)),
		FolderSelectedBoth: folderRow(goTo(LoginA)),
		FolderSelectedB: folderRow(func(c *Controller, ctx context.Context, _ State, _ Event) {
			c.requestWallet(ctx)
		}),
		LoginA: {
			EventCreateAccount: goTo(RegisterA),
			EventBack:          storjBack,
			EventFinish:        submitLogin,
		},
		RegisterA: {
			EventLogin: goTo(LoginA),
			EventBack:  storjBack,
			EventNext:  submitRegistration,
		},
		EncryptionKeyA: {
			EventBack: goTo(RegisterA),
			EventNext: goTo(EmailConfirmationA),
		},
		EmailConfirmationA: {
			EventBack:  goTo(EncryptionKeyA),
			EventLogin: goTo(LoginA),
		},
		WalletB: {
			EventBack: walletBack,
			EventNext: func(c *Controller, _ context.Context, _ State, _ Event) {
				c.saveConfig(FinishB)
			},
		},
		FinishB: {
			EventBack:  goTo(WalletB),
			EventClose: closeWindow,
		},
		FinishAll: {
			EventBack:  goTo(LoginA),
			EventClose: closeWindow,
		},
	}
}
