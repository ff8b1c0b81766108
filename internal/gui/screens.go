package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/wizard"
)

// fields holds the widgets whose content outlives a screen rebuild.
type fields struct {
	email         *widget.Entry
	password      *widget.Entry
	encryptionKey *widget.Entry
	regEmail      *widget.Entry
	regPassword   *widget.Entry
	folder        *folderEntry

	// shownFolder is the sync folder last copied into the folder entry.
	shownFolder string

	emailWarn    *widget.Label
	passwordWarn *widget.Label
	keyWarn      *widget.Label
	warnMessage  *widget.Label

	generatedKey *widget.Label
	address      *widget.Label
	seed         *widget.Label
}

func newFields() *fields {
	f := &fields{
		email:         widget.NewEntry(),
		password:      widget.NewPasswordEntry(),
		encryptionKey: widget.NewPasswordEntry(),
		regEmail:      widget.NewEntry(),
		regPassword:   widget.NewPasswordEntry(),
		folder:        newFolderEntry(),
		emailWarn:     warningLabel("Check your email address"),
		passwordWarn:  warningLabel("Check your password"),
		keyWarn:       warningLabel("Check your encryption key"),
		warnMessage:   warningLabel(""),
		generatedKey:  secretLabel(),
		address:       secretLabel(),
		seed:          secretLabel(),
	}
	f.email.SetPlaceHolder("Email")
	f.password.SetPlaceHolder("Password")
	f.encryptionKey.SetPlaceHolder("Encryption key")
	f.regEmail.SetPlaceHolder("Email")
	f.regPassword.SetPlaceHolder("Password")
	return f
}

// folderEntry reports its text when the user presses enter or leaves the
// field, not on every keystroke.
type folderEntry struct {
	widget.Entry
	onCommit func(string)
}

func newFolderEntry() *folderEntry {
	e := &folderEntry{}
	e.ExtendBaseWidget(e)
	e.OnSubmitted = func(text string) { e.commit(text) }
	return e
}

// FocusLost implements fyne.Focusable.
func (e *folderEntry) FocusLost() {
	e.Entry.FocusLost()
	e.commit(e.Text)
}

func (e *folderEntry) commit(text string) {
	if e.onCommit != nil {
		e.onCommit(text)
	}
}

func warningLabel(text string) *widget.Label {
	l := widget.NewLabel(text)
	l.Importance = widget.DangerImportance
	l.Wrapping = fyne.TextWrapWord
	l.Hide()
	return l
}

func secretLabel() *widget.Label {
	l := widget.NewLabel("")
	l.TextStyle = fyne.TextStyle{Monospace: true}
	l.Wrapping = fyne.TextWrapWord
	l.Selectable = true
	return l
}

// bind wires entry callbacks to the app.
func (f *fields) bind(a *App) {
	f.folder.onCommit = func(text string) { a.commitFolder(text) }
	f.encryptionKey.OnSubmitted = func(string) { a.dispatch(f.finish()) }
	f.regPassword.OnSubmitted = func(string) { a.dispatch(f.submitRegistration()) }
}

// load copies the account data of st into the entries when a screen is
// entered.
func (f *fields) load(st wizard.State) {
	acct := st.StorjAccount
	switch st.Screen {
	case wizard.LoginA:
		setIfEmpty(f.email, acct.Email)
		setIfEmpty(f.password, acct.Password)
		setIfEmpty(f.encryptionKey, acct.EncryptionKey)
	case wizard.RegisterA:
		setIfEmpty(f.regEmail, acct.Email)
		setIfEmpty(f.regPassword, acct.Password)
	}
}

func setIfEmpty(e *widget.Entry, text string) {
	if e.Text == "" && text != "" {
		e.SetText(text)
	}
}

// update refreshes warnings and read-only values from st.
func (f *fields) update(st wizard.State) {
	acct := st.StorjAccount

	showIf(f.emailWarn, acct.EmailWarn)
	showIf(f.passwordWarn, acct.PasswordWarn)
	showIf(f.keyWarn, acct.KeyWarn)
	f.warnMessage.SetText(acct.WarnMessage)
	showIf(f.warnMessage, acct.WarnMessage != "")

	f.generatedKey.SetText(acct.EncryptionKey)
	f.address.SetText(st.SiaAccount.Address)
	f.seed.SetText(st.SiaAccount.Seed)

	if st.SyncFolder != f.shownFolder {
		f.folder.SetText(st.SyncFolder)
		f.shownFolder = st.SyncFolder
	}

	if st.Busy() {
		f.folder.Disable()
	} else {
		f.folder.Enable()
	}
}

func showIf(o fyne.CanvasObject, visible bool) {
	if visible {
		o.Show()
	} else {
		o.Hide()
	}
}

func (f *fields) finish() wizard.Event {
	return wizard.Finish{Credentials: ipc.Credentials{
		Email:         f.email.Text,
		Password:      f.password.Text,
		EncryptionKey: f.encryptionKey.Text,
	}}
}

func (f *fields) submitRegistration() wizard.Event {
	return wizard.SubmitRegistration{Registration: ipc.Registration{
		Email:    f.regEmail.Text,
		Password: f.regPassword.Text,
	}}
}

func event(ev wizard.Event) func() wizard.Event {
	return func() wizard.Event { return ev }
}

// buildScreen lays out st.Screen.
func (a *App) buildScreen(st wizard.State) fyne.CanvasObject {
	f := a.fields

	switch st.Screen {
	case wizard.Welcome:
		return page("Welcome to Goobox",
			"Goobox keeps a folder on this computer in sync with decentralized cloud storage. "+
				"This wizard sets up your storage accounts and the folder to sync.",
			nil,
			a.button("Next", true, event(wizard.Next{})))

	case wizard.ChooseBackend:
		options := container.NewGridWithColumns(3,
			a.button("Storj", false, event(wizard.SelectStorj{})),
			a.button("Sia", false, event(wizard.SelectSia{})),
			a.button("Storj and Sia", false, event(wizard.SelectBoth{})),
		)
		return page("Choose a cloud service",
			"Pick the storage network your files should go to.",
			options)

	case wizard.FolderSelectedA, wizard.FolderSelectedB, wizard.FolderSelectedBoth:
		browse := a.button("Browse...", false, event(wizard.ChooseFolder{}))
		browse.SetIcon(theme.FolderOpenIcon())
		folderRow := container.NewBorder(nil, nil, nil, browse, f.folder)
		return page("Sync folder",
			"Files in this folder will be synced to "+backendNames(st)+".",
			folderRow,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Next", true, a.folderNext))

	case wizard.LoginA:
		form := container.NewVBox(
			f.email, f.emailWarn,
			f.password, f.passwordWarn,
			f.encryptionKey, f.keyWarn,
			f.warnMessage,
			container.NewHBox(widget.NewLabel("No account yet?"),
				a.button("Create one", false, event(wizard.CreateAccount{}))),
		)
		return page("Sign in to Storj",
			"Enter your Storj account and the encryption key for your files.",
			form,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Finish", true, f.finish))

	case wizard.RegisterA:
		form := container.NewVBox(
			f.regEmail,
			f.regPassword,
			f.warnMessage,
			container.NewHBox(widget.NewLabel("Already registered?"),
				a.button("Sign in", false, event(wizard.GoToLogin{}))),
		)
		return page("Create a Storj account", "", form,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Next", true, f.submitRegistration))

	case wizard.EncryptionKeyA:
		return page("Your encryption key",
			"Write this key down and keep it safe. Without it your files cannot be decrypted.",
			f.generatedKey,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Next", true, event(wizard.Next{})))

	case wizard.EmailConfirmationA:
		return page("Confirm your email",
			"We sent a confirmation link to "+st.StorjAccount.Email+". Follow it, then sign in.",
			nil,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Sign in", true, event(wizard.GoToLogin{})))

	case wizard.WalletB:
		wallet := container.NewVBox(
			widget.NewLabelWithStyle("Wallet address", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			f.address,
			widget.NewLabelWithStyle("Seed", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			f.seed,
		)
		return page("Your Sia wallet",
			"Store the seed somewhere safe. It is the only way to recover the wallet.",
			wallet,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Next", true, event(wizard.Next{})))

	case wizard.FinishB, wizard.FinishAll:
		return page("All set",
			"Goobox will start syncing "+st.SyncFolder+" when you close this window.",
			nil,
			a.button("Back", false, event(wizard.Back{})),
			a.button("Close", true, event(wizard.Close{})))
	}

	return widget.NewLabel("Unknown screen " + st.Screen.String())
}

// folderNext commits the typed folder ahead of Next so both reach the
// controller in that order.
func (a *App) folderNext() wizard.Event {
	if !a.commitFolder(a.fields.folder.Text) {
		return nil
	}
	return wizard.Next{}
}

func backendNames(st wizard.State) string {
	switch {
	case st.Storj && st.Sia:
		return "Storj and Sia"
	case st.Sia:
		return "Sia"
	default:
		return "Storj"
	}
}

// page lays out a title, a description, optional content and a button row
// aligned to the right.
func page(title, description string, content fyne.CanvasObject, buttons ...*widget.Button) fyne.CanvasObject {
	heading := widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	heading.SizeName = theme.SizeNameHeadingText

	top := container.NewVBox(heading)
	if description != "" {
		text := widget.NewLabel(description)
		text.Wrapping = fyne.TextWrapWord
		top.Add(text)
	}
	top.Add(widget.NewSeparator())

	row := container.NewHBox(layout.NewSpacer())
	for _, b := range buttons {
		row.Add(b)
	}

	if content == nil {
		content = layout.NewSpacer()
	}
	return container.NewBorder(top, row, nil, nil, container.NewVScroll(content))
}
