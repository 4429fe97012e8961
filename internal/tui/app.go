package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/tui/client"
	"github.com/voluntr/volchat/internal/tui/keys"
	"github.com/voluntr/volchat/internal/tui/model"
	"github.com/voluntr/volchat/internal/tui/ui"
	"github.com/voluntr/volchat/internal/tui/views"
)

const (
	pageConversations = "conversations"
	pageThread        = "thread"
	pageSearch        = "search"
	pageDetails       = "details"
	pageHelp          = "help"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *ui.Pages
	vm       *model.ViewModel
	client   *client.Client
	ctrl     *chat.Controller
	registry *keys.Registry
	theme    *ui.Theme

	logo        *ui.Logo
	profileInfo *ui.ProfileInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	flash       *ui.FlashModel
	flashBar    *ui.FlashBar
	prompt      *ui.Prompt

	convList    *views.ConversationList
	thread      *views.MessageThread
	searchV     *views.SearchView
	contactInfo *views.ContactInfo
	helpV       *views.HelpView
	statusBar   *views.StatusBar

	root        *tview.Flex
	profileName string
	onLogout    func() error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application shell around a daemon client and chat
// controller.
func NewApp(c *client.Client, ctrl *chat.Controller, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		pages:       ui.NewPages(),
		vm:          model.NewViewModel(c),
		client:      c,
		ctrl:        ctrl,
		registry:    keys.NewRegistry(),
		theme:       theme,
		logo:        ui.NewLogo(theme),
		profileInfo: ui.NewProfileInfo(theme),
		menu:        ui.NewMenu(theme),
		crumbs:      ui.NewCrumbs(theme),
		flash:       ui.NewFlashModel(),
		flashBar:    ui.NewFlashBar(theme),
		prompt:      ui.NewPrompt(theme),
		convList:    views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme),
		searchV:     views.NewSearchView(theme),
		contactInfo: views.NewContactInfo(theme),
		helpV:       views.NewHelpView(theme),
		statusBar:   views.NewStatusBar(),
		profileName: profileName,
		ctx:         ctx,
		cancel:      cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

// SetOnLogout registers the callback invoked by the :logout command.
func (a *App) SetOnLogout(fn func() error) {
	a.onLogout = fn
}

func (a *App) component(page string) ui.Component {
	switch page {
	case pageConversations:
		return a.convList
	case pageThread:
		return a.thread
	case pageSearch:
		return a.searchV
	case pageDetails:
		return a.contactInfo
	case pageHelp:
		return a.helpV
	default:
		return nil
	}
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.pushPage(pageHelp, a.helpV) },
	})
	a.registry.AddView(pageConversations, "new-chat", &keys.Action{
		Rune: 'n', Key: tcell.KeyRune,
		Description: "n:new chat", Visible: true,
		Handler: func() { a.showSearch() },
	})
	a.registry.AddView(pageThread, "details", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:details", Visible: true,
		Handler: func() { a.showDetails() },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		if contact := a.convList.SelectedContact(); contact != nil {
			a.openThread(*contact)
		}
	})

	a.thread.SetOnSend(func(text string) {
		target := a.ctrl.Target()
		if target == nil {
			return
		}
		go func() {
			if err := a.ctrl.Send(a.ctx, text, target.ID); err != nil {
				a.flash.Err(err)
				a.draw()
			}
		}()
	})

	a.searchV.SetOnQuery(func(fragment string) {
		go func() {
			results, err := a.ctrl.SearchContacts(a.ctx, fragment)
			if err != nil {
				a.flash.Err(err)
				a.draw()
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchV.Update(results)
				a.app.SetFocus(a.searchV.Results())
			})
		}()
	})

	a.searchV.Results().SetSelectedFunc(func(row, col int) {
		if contact := a.searchV.SelectedContact(); contact != nil {
			a.ctrl.SetSearchVisible(false)
			a.openThread(*contact)
		}
	})

	// Live thread or summary updates from the controller's subscription.
	a.ctrl.SetChangeFunc(func() {
		a.app.QueueUpdateDraw(func() {
			a.refreshViews()
		})
	})

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		if c := a.component(a.pages.Current()); c != nil {
			a.menu.Update(c.Hints())
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.convList.SetFilter(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		a.hidePrompt()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.profileInfo, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 26, 0, false)

	a.pages.AddPage(pageConversations, a.convList, true, true)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageSearch, a.searchV, true, false)
	a.pages.AddPage(pageDetails, a.contactInfo, true, false)
	a.pages.AddPage(pageHelp, a.helpV, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.Reset(pageConversations)
	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	currentPage := a.pages.Current()

	if event.Key() == tcell.KeyEscape {
		focused := a.app.GetFocus()
		if focused == a.prompt.InputField {
			return event // let the prompt's done func handle it
		}
		if currentPage == pageThread && focused == a.thread.Composer() {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		if a.pages.Depth() > 1 {
			a.popPage()
			return nil
		}
		return nil
	}

	// Let text input widgets handle all other keys normally.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	switch {
	case event.Rune() == ':':
		a.showPrompt(ui.PromptCommand)
		return nil
	case event.Rune() == '/' && currentPage == pageConversations:
		a.showPrompt(ui.PromptFilter)
		return nil
	case event.Rune() == 'i' && currentPage == pageThread:
		a.app.SetFocus(a.thread.Composer())
		return nil
	case event.Rune() == '0' && currentPage == pageConversations:
		a.convList.ClearFilter()
		return nil
	case event.Rune() >= '1' && event.Rune() <= '9' && currentPage == pageConversations:
		if contact := a.convList.ContactByIndex(int(event.Rune() - '0')); contact != nil {
			a.openThread(*contact)
		}
		return nil
	}

	if a.registry.HandleEvent(currentPage, event) {
		return nil
	}
	return event
}

func (a *App) pushPage(name string, focus tview.Primitive) {
	a.pages.Push(name)
	if focus != nil {
		a.app.SetFocus(focus)
	}
}

func (a *App) popPage() {
	popped := a.pages.Pop()
	if popped == pageThread {
		a.ctrl.Close()
		go a.reopenContacts()
	}
	if popped == pageSearch {
		a.ctrl.SetSearchVisible(false)
	}
	switch a.pages.Current() {
	case pageConversations:
		a.app.SetFocus(a.convList)
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.searchV.Input())
	}
}

func (a *App) reopenContacts() {
	if err := a.ctrl.OpenContacts(a.ctx); err != nil {
		a.flash.Err(err)
	}
	a.app.QueueUpdateDraw(func() {
		a.refreshViews()
	})
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	switch a.pages.Current() {
	case pageConversations:
		a.app.SetFocus(a.convList)
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.searchV.Input())
	}
}

func (a *App) showSearch() {
	a.ctrl.SetSearchVisible(true)
	a.searchV.Update(nil)
	a.pushPage(pageSearch, a.searchV.Input())
}

func (a *App) showDetails() {
	target := a.ctrl.Target()
	if target == nil {
		return
	}
	unread := 0
	for _, s := range a.ctrl.Summaries() {
		if s.Contact.ID == target.ID {
			unread = s.UnreadCount
			break
		}
	}
	a.contactInfo.Update(target, unread)
	a.pushPage(pageDetails, a.contactInfo)
}

func (a *App) openThread(contact chat.Contact) {
	go func() {
		if err := a.ctrl.OpenThread(a.ctx, contact); err != nil {
			a.flash.Err(err)
			a.draw()
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.thread.SetContact(&contact)
			a.thread.Update(a.ctrl.Thread(), a.ctrl.Identity().UserID)
			if a.pages.Current() == pageSearch {
				a.pages.Pop()
			}
			if a.pages.Current() != pageThread {
				a.pages.Push(pageThread)
			}
			a.app.SetFocus(a.thread.Messages())
		})
	}()
}

// refreshViews re-renders data-bearing views from controller snapshots.
// Must run on the UI goroutine.
func (a *App) refreshViews() {
	summaries := a.ctrl.Summaries()
	a.convList.Update(summaries)
	if a.pages.Current() == pageThread {
		a.thread.Update(a.ctrl.Thread(), a.ctrl.Identity().UserID)
	}

	unread := 0
	for _, s := range summaries {
		unread += s.UnreadCount
	}
	st := a.vm.Status()
	data := &ui.ProfileData{
		Profile:       a.profileName,
		Conversations: len(summaries),
		Unread:        unread,
		Uptime:        a.vm.Uptime(),
	}
	if st != nil {
		data.User = st.UserName
		data.Status = st.State
		a.statusBar.SetStatus(st.State)
	}
	a.profileInfo.Update(data)
	a.flashBar.Update(a.flash.GetMessage())
	a.statusBar.SetFlash(a.flash.Get())
}

func (a *App) draw() {
	a.app.QueueUpdateDraw(func() {
		a.refreshViews()
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.client.StartEvents(a.ctx)

	go func() {
		_ = a.vm.LoadStatus(a.ctx)
		if err := a.ctrl.OpenContacts(a.ctx); err != nil {
			a.flash.Err(err)
		}
		a.draw()
		a.startRefreshLoop()
		a.watchSummaryEvents()
	}()

	return a.app.Run()
}

// startRefreshLoop polls daemon status and re-aggregates periodically as a
// backstop for missed events.
func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = a.vm.LoadStatus(a.ctx)
				if err := a.ctrl.RefreshSummaries(a.ctx); err != nil {
					a.flash.Err(err)
				}
				a.draw()
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// watchSummaryEvents refreshes the conversation list when messages arrive
// for threads other than the open one.
func (a *App) watchSummaryEvents() {
	sub := a.client.Subscribe("message.", 128)
	go func() {
		defer sub.Close()
		for {
			select {
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				if err := a.ctrl.RefreshSummaries(a.ctx); err != nil {
					continue
				}
				a.draw()
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.pushPage(pageHelp, a.helpV)
	case "search":
		a.showSearch()
		if cmd.Args != "" {
			a.searchV.Input().SetText(cmd.Args)
			go func() {
				results, err := a.ctrl.SearchContacts(a.ctx, cmd.Args)
				if err != nil {
					a.flash.Err(err)
					a.draw()
					return
				}
				a.app.QueueUpdateDraw(func() {
					a.searchV.Update(results)
					a.app.SetFocus(a.searchV.Results())
				})
			}()
		}
	case "open":
		if cmd.Args == "" {
			a.flash.Warn("usage: :open <email prefix>")
			return
		}
		go func() {
			results, err := a.ctrl.SearchContacts(a.ctx, cmd.Args)
			if err != nil {
				a.flash.Err(err)
				a.draw()
				return
			}
			if len(results) == 0 {
				a.flash.Warn("no contact matches " + cmd.Args)
				a.draw()
				return
			}
			a.openThread(results[0])
		}()
	case "logout":
		if a.onLogout == nil {
			return
		}
		if err := a.onLogout(); err != nil {
			a.flash.Err(err)
			return
		}
		a.flash.Info("identity cleared, restart to log in again")
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.ctrl.Close()
	a.cancel()
	a.app.Stop()
}
