package profile

import (
	"path/filepath"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.toml")

	id := &Identity{UserID: "u17", Name: "Jana", Email: "jana@example.org"}
	if err := saveIdentityFile(path, id); err != nil {
		t.Fatal(err)
	}

	got, err := loadIdentityFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.UserID != "u17" || got.Email != "jana@example.org" {
		t.Errorf("got %+v, want round-tripped identity", got)
	}
}

func TestLoadIdentityMissingFile(t *testing.T) {
	got, err := loadIdentityFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing identity file should not error, got %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing file", got)
	}
}
