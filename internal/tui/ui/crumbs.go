package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Crumbs renders the page stack as a breadcrumb trail, the way the
// conversation list > thread navigation reads left to right.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{TextView: tv, theme: theme}
}

// Update redraws the trail. The top of the stack is the active crumb.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	if len(stack) == 0 {
		return
	}

	crumbs := make([]string, 0, len(stack))
	for i, name := range stack {
		if i == len(stack)-1 {
			crumbs = append(crumbs, fmt.Sprintf("[%s:%s:b] %s [-:-:-]",
				colorName(c.theme.CrumbActiveFg), colorName(c.theme.CrumbActiveBg), name))
			continue
		}
		crumbs = append(crumbs, fmt.Sprintf("[%s:%s:] %s [-:-:-]",
			colorName(c.theme.CrumbInactiveFg), colorName(c.theme.CrumbInactiveBg), name))
	}
	_, _ = fmt.Fprint(c, strings.Join(crumbs, " > "))
}

// colorName maps a tcell color back to a tview tag name, falling back to
// the hex form for colors tcell has no name for.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
