package session

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Saved is the on-disk form of a session.
type Saved struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	UserID       string `toml:"user_id"`
	Email        string `toml:"email"`
}

// File persists a session between runs. The file holds bearer tokens and is
// written owner-only.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Load returns nil, nil when no session was saved.
func (f *File) Load() (*Saved, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Saved
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *File) Save(s Saved) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *File) Remove() error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
