package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs string
	}{
		{"quit", "quit", ""},
		{"  help  ", "help", ""},
		{"open alice@voluntr.org", "open", "alice@voluntr.org"},
		{"SEARCH al", "search", "al"},
		{"open  spaced  args ", "open", "spaced  args"},
		{"", "", ""},
	}

	for _, tt := range tests {
		got := ParseCommand(tt.input)
		if got.Name != tt.wantName || got.Args != tt.wantArgs {
			t.Errorf("ParseCommand(%q) = {%q %q}, want {%q %q}",
				tt.input, got.Name, got.Args, tt.wantName, tt.wantArgs)
		}
	}
}
