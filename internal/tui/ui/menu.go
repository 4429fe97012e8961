package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu lists the active view's keyboard shortcuts, one per line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{TextView: tv, theme: theme}
}

// Update replaces the hint list. Numeric jump hints get their own color.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)

	for _, h := range hints {
		c := keyColor
		if h.Numeric {
			c = numColor
		}
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", c, h.Key, h.Description)
	}
}
