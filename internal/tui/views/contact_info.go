package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/tui/ui"
)

// ContactInfo displays detailed information about a contact.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Contact Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ContactInfo) Name() string { return "Details" }

// Init implements Component.
func (ci *ContactInfo) Init() {}

// Start implements Component.
func (ci *ContactInfo) Start() {}

// Stop implements Component.
func (ci *ContactInfo) Stop() {}

// Hints implements Component.
func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// Update renders contact details.
func (ci *ContactInfo) Update(c *chat.Contact, unread int) {
	ci.Clear()
	if c == nil {
		return
	}

	fg := fmt.Sprintf("#%06x", ci.theme.FgColor.Hex())
	ct := fmt.Sprintf("#%06x", ci.theme.CounterColor.Hex())

	presence := "offline"
	if c.IsOnline {
		presence = "online"
	}

	lastSeen := "-"
	if c.LastSeen > 0 {
		lastSeen = time.UnixMilli(c.LastSeen).Format("2006-01-02 15:04")
	}

	org := c.Organization
	if org == "" {
		org = "-"
	}

	text := fmt.Sprintf(
		"\n [%s::b]Name:[-:-:-]      [%s]%s[-]\n"+
			" [%s::b]Email:[-:-:-]     [%s]%s[-]\n"+
			" [%s::b]Role:[-:-:-]      [%s]%s[-]\n"+
			" [%s::b]Org:[-:-:-]       [%s]%s[-]\n"+
			" [%s::b]Presence:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]Last Seen:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Unread:[-:-:-]    [%s]%d[-]",
		fg, ct, tview.Escape(c.Name),
		fg, ct, tview.Escape(c.Email),
		fg, ct, c.Role,
		fg, ct, tview.Escape(org),
		fg, ct, presence,
		fg, ct, lastSeen,
		fg, ct, unread,
	)

	_, _ = fmt.Fprint(ci, text)
	if c.Name != "" {
		ci.SetTitle(fmt.Sprintf(" %s ", c.Name))
	}
}
