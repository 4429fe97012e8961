package profile

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Identity is the logged-in portal user bound to a profile. Written at login,
// removed at logout; there is no in-place user switch.
type Identity struct {
	UserID string `toml:"user_id"`
	Name   string `toml:"name"`
	Email  string `toml:"email"`
}

// LoadIdentity reads the profile's identity file. Returns nil without error
// when no identity has been written yet.
func LoadIdentity(name string) (*Identity, error) {
	return loadIdentityFile(IdentityPath(name))
}

// SaveIdentity writes the profile's identity file with owner-only modes.
func SaveIdentity(name string, id *Identity) error {
	return saveIdentityFile(IdentityPath(name), id)
}

// ClearIdentity removes the profile's identity file. Logout is a full
// teardown, not a mutation.
func ClearIdentity(name string) error {
	err := os.Remove(IdentityPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func loadIdentityFile(path string) (*Identity, error) {
	var id Identity
	_, err := toml.DecodeFile(path, &id)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func saveIdentityFile(path string, id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(id)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
