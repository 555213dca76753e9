package service

import (
	"fmt"
	"strconv"

	"pagebuilder/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Window and Session Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves the main window size and the last opened release so the editor
// comes back where the user left it.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window state between sessions.
type WindowSettingsService struct {
	settings *storage.SettingsStore
}

// NewWindowSettingsService creates a WindowSettingsService.
func NewWindowSettingsService(settings *storage.SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{settings: settings}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastRelease  = "last_release"
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// LoadWindowSize returns the saved window dimensions, or defaults when
// nothing usable is stored.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	w := s.intSetting(settingWindowWidth, defaultWindowWidth)
	h := s.intSetting(settingWindowHeight, defaultWindowHeight)
	if w < minWindowWidth {
		w = defaultWindowWidth
	}
	if h < minWindowHeight {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.settings.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.settings.Set(settingWindowHeight, strconv.Itoa(height))
}

// LastRelease returns the release that was open when the app last closed.
func (s *WindowSettingsService) LastRelease() string {
	if s.settings == nil {
		return ""
	}
	v, _, _ := s.settings.Get(settingLastRelease)
	return v
}

// SetLastRelease records the release the window is editing.
func (s *WindowSettingsService) SetLastRelease(releaseID string) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no store")
	}
	return s.settings.Set(settingLastRelease, releaseID)
}

func (s *WindowSettingsService) intSetting(name string, def int) int {
	if s.settings == nil {
		return def
	}
	v, ok, err := s.settings.Get(name)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
