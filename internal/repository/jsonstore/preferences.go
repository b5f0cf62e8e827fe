package jsonstore

import (
	"errors"
	"fmt"

	"potholewatch/internal/repository"
)

// Themes accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrUnknownTheme is returned by SetTheme for anything but light and dark.
var ErrUnknownTheme = errors.New("unknown theme")

// PreferenceStore implements repository.PreferenceRepository. The theme is
// stored as a bare string, matching what browsers wrote under the same key.
type PreferenceStore struct {
	kv repository.KeyValueStore
}

// NewPreferenceStore creates a preference store.
func NewPreferenceStore(kv repository.KeyValueStore) *PreferenceStore {
	return &PreferenceStore{kv: kv}
}

// Theme returns the saved theme, or "" when none was chosen.
func (s *PreferenceStore) Theme() (string, error) {
	v, _, err := s.kv.Get(repository.ThemeKey)
	return v, err
}

// SetTheme saves theme, which must be light or dark.
func (s *PreferenceStore) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w %q", ErrUnknownTheme, theme)
	}
	return s.kv.Put(repository.ThemeKey, theme)
}
