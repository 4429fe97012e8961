package ui

// MenuHint describes a keyboard shortcut for the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 jump shortcuts render in their own color
}

// Component is the lifecycle contract every view implements. Start and
// Stop bracket the time a view is on screen; Hints feeds the menu bar.
type Component interface {
	Name() string
	Init()
	Start()
	Stop()
	Hints() []MenuHint
}
