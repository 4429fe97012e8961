package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/voluntr/volchat/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() {}

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := fmt.Sprintf("#%06x", hv.theme.MenuKeyColor.Hex())

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]:[-:-:-]    Command mode        [%s]Esc[-:-:-]   Cancel / Go back
  [%s]/[-:-:-]    Filter mode         [%s]?[-:-:-]     Help
  [%s]q[-:-:-]    Quit / Back         [%s]Ctrl-C[-:-:-] Quit immediately

  [::b]Conversation List[-:-:-]

  [%s]Enter[-:-:-]  Open conversation  [%s]n[-:-:-]     New chat (search contacts)
  [%s]1-9[-:-:-]    Jump to Nth convo  [%s]0[-:-:-]     Show all (clear filter)
  [%s]j/Down[-:-:-] Move down          [%s]k/Up[-:-:-]  Move up

  [::b]Message Thread[-:-:-]

  [%s]i[-:-:-]    Focus composer      [%s]d[-:-:-]     Show contact details
  [%s]Esc[-:-:-]  Exit composer       [%s]Enter[-:-:-] Send message (in composer)

  [::b]Commands (: mode)[-:-:-]

  [%s]:search <email>[-:-:-]    Search contacts by email prefix
  [%s]:open <email>[-:-:-]      Open a chat with a contact
  [%s]:logout[-:-:-]            Clear this profile's identity
  [%s]:help[-:-:-] / [%s]:h[-:-:-]       Show this help
  [%s]:quit[-:-:-] / [%s]:q[-:-:-]       Quit application
`,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
