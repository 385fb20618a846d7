package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrSaveNotFound is returned when loading a slot that was never created.
var ErrSaveNotFound = errors.New("save not found")

const logFile = "log.jsonl"

// SaveInfo describes one save slot on disk.
type SaveInfo struct {
	Story    string
	Slot     string
	Modified time.Time
}

// SaveManager organises event logs as <dir>/<story>/<slot>/log.jsonl.
type SaveManager struct {
	SavesDir string
}

// NewSaveManager returns a manager rooted at savesDir.
func NewSaveManager(savesDir string) *SaveManager {
	return &SaveManager{SavesDir: savesDir}
}

// Path returns the directory of a save slot.
func (m *SaveManager) Path(story, slot string) string {
	return filepath.Join(m.SavesDir, story, slot)
}

// Create makes the slot directory and opens its log. Creating an existing slot reopens it.
func (m *SaveManager) Create(story, slot string) (*Store, error) {
	if err := checkName(story); err != nil {
		return nil, err
	}
	if err := checkName(slot); err != nil {
		return nil, err
	}
	path := m.Path(story, slot)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return NewStore(filepath.Join(path, logFile))
}

// Load opens the log of an existing slot.
func (m *SaveManager) Load(story, slot string) (*Store, error) {
	if err := checkName(story); err != nil {
		return nil, err
	}
	if err := checkName(slot); err != nil {
		return nil, err
	}
	path := m.Path(story, slot)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s/%s", ErrSaveNotFound, story, slot)
	}
	return NewStore(filepath.Join(path, logFile))
}

// List returns every slot with a log, sorted by story then slot.
func (m *SaveManager) List() ([]SaveInfo, error) {
	matches, err := filepath.Glob(filepath.Join(m.SavesDir, "*", "*", logFile))
	if err != nil {
		return nil, err
	}
	saves := make([]SaveInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		slotDir := filepath.Dir(match)
		saves = append(saves, SaveInfo{
			Story:    filepath.Base(filepath.Dir(slotDir)),
			Slot:     filepath.Base(slotDir),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(saves, func(i, j int) bool {
		if saves[i].Story != saves[j].Story {
			return saves[i].Story < saves[j].Story
		}
		return saves[i].Slot < saves[j].Slot
	})
	return saves, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid save name %q", name)
	}
	return nil
}
