package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/tui/ui"
)

// ConversationList is the main conversation overview table.
type ConversationList struct {
	*tview.Table
	theme     *ui.Theme
	summaries []chat.Summary
	filter    string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Init implements Component.
func (cl *ConversationList) Init() {}

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "n", Description: "New chat"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
		{Key: "0-9", Description: "Jump", Numeric: true},
	}
}

// Update refreshes the list with new summaries.
func (cl *ConversationList) Update(summaries []chat.Summary) {
	cl.summaries = summaries
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ConversationList) matches(s chat.Summary) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(s.Contact.Name), f) ||
		strings.Contains(strings.ToLower(s.Contact.Email), f) ||
		strings.Contains(strings.ToLower(s.LastMessage.Body), f)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" ROLE", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	row := 1
	for _, s := range cl.summaries {
		if !cl.matches(s) {
			continue
		}

		name := s.Contact.Name
		if name == "" {
			name = s.Contact.ID
		}
		if s.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", s.UnreadCount, name)
		}

		preview := s.LastMessage.Body

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(s.LastMessage.Timestamp)).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(s.Contact.Role).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", row-1, len(cl.summaries), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.summaries)))
	}
}

// SelectedContact returns the contact of the currently selected row, or nil.
func (cl *ConversationList) SelectedContact() *chat.Contact {
	row, _ := cl.GetSelection()
	idx := row - 1 // account for header
	if idx < 0 {
		return nil
	}

	visible := 0
	for _, s := range cl.summaries {
		if !cl.matches(s) {
			continue
		}
		if visible == idx {
			c := s.Contact
			return &c
		}
		visible++
	}
	return nil
}

// ContactByIndex returns the Nth visible conversation's contact (1-based).
func (cl *ConversationList) ContactByIndex(n int) *chat.Contact {
	if n < 1 {
		return nil
	}
	visible := 0
	for _, s := range cl.summaries {
		if !cl.matches(s) {
			continue
		}
		visible++
		if visible == n {
			c := s.Contact
			return &c
		}
	}
	return nil
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
