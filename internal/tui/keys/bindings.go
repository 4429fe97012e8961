// Package keys holds the shell's keybinding registry. Bindings are
// scoped: view bindings shadow global ones for whichever view has focus.
package keys

import "github.com/gdamore/tcell/v2"

// Action binds a key (or rune) to a handler. Visible actions surface
// their Description in the menu bar.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether the event triggers this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds global bindings plus per-view overrides.
type Registry struct {
	Global map[string]*Action
	Views  map[string]map[string]*Action
}

func NewRegistry() *Registry {
	return &Registry{
		Global: make(map[string]*Action),
		Views:  make(map[string]map[string]*Action),
	}
}

// AddGlobal registers a binding active in every view.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.Global[name] = action
}

// AddView registers a binding active only while the named view has focus.
func (r *Registry) AddView(view, name string, action *Action) {
	if r.Views[view] == nil {
		r.Views[view] = make(map[string]*Action)
	}
	r.Views[view][name] = action
}

// Hints collects the visible descriptions for the given view, globals
// included.
func (r *Registry) Hints(view string) []string {
	var hints []string
	for _, a := range r.Global {
		if a.Visible {
			hints = append(hints, a.Description)
		}
	}
	if scoped, ok := r.Views[view]; ok {
		for _, a := range scoped {
			if a.Visible {
				hints = append(hints, a.Description)
			}
		}
	}
	return hints
}

// HandleEvent dispatches an event, view bindings first so they can
// shadow globals. Reports whether any handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	if scoped, ok := r.Views[view]; ok {
		for _, a := range scoped {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	for _, a := range r.Global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
