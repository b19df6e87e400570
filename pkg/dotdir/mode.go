package dotdir

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	modeFile = "mode"

	// legacyVerbose is the retired name for ModeActive.
	legacyVerbose = "verbose"
)

// Mode controls how the CLI reports memory activity.
type Mode string

const (
	// ModeActive reports every save and search.
	ModeActive Mode = "active"

	// ModeSilent saves and searches without output.
	ModeSilent Mode = "silent"

	// ModeAsk confirms before saving.
	ModeAsk Mode = "ask"
)

// Modes lists the accepted modes in display order.
func Modes() []Mode {
	return []Mode{ModeActive, ModeSilent, ModeAsk}
}

// ParseMode validates a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeActive:
		return ModeActive, nil
	case ModeSilent:
		return ModeSilent, nil
	case ModeAsk:
		return ModeAsk, nil
	case legacyVerbose:
		return ModeActive, nil
	default:
		return "", fmt.Errorf("invalid mode %q (available: active, silent, ask)", s)
	}
}

// LoadMode reads the persisted mode. A missing file yields ModeActive.
// A file still holding "verbose" is rewritten as "active".
func (m *Manager) LoadMode(overrideDir string) (Mode, error) {
	path, err := m.File(overrideDir, modeFile)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ModeActive, nil
		}
		return "", fmt.Errorf("reading mode: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	mode, err := ParseMode(raw)
	if err != nil {
		return "", fmt.Errorf("parsing mode: %w", err)
	}

	if strings.EqualFold(raw, legacyVerbose) {
		if err := m.SaveMode(mode, overrideDir); err != nil {
			return "", err
		}
	}

	return mode, nil
}

// SaveMode persists mode to the target .raggadon/mode file.
func (m *Manager) SaveMode(mode Mode, overrideDir string) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return err
	}

	path, err := m.File(overrideDir, modeFile)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(string(mode)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing mode: %w", err)
	}

	return nil
}
