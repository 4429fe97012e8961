package tui

import "strings"

// Command is a parsed prompt entry: the name plus everything after it.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits prompt input (without the leading ':') into a
// lowercased name and its raw argument tail.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, rest, _ := strings.Cut(input, " ")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(rest),
	}
}
