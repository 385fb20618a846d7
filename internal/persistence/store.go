package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MarianRusoiu99/text-based-sub001/internal/engine"
)

// EventWrapper facilitates serialization of polymorphic events
type EventWrapper struct {
	Type  engine.EventType `json:"type"`
	Event json.RawMessage  `json:"data"`
}

// Store handles append-only storing of event log.
type Store struct {
	file *os.File
}

// NewStore opens or creates the file at path for appending lines
func NewStore(path string) (*Store, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	return &Store{file: file}, nil
}

// Append marshals one event to the jsonl log and syncs the file.
func (s *Store) Append(evt engine.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	wrapperData, err := json.Marshal(EventWrapper{Type: evt.Type(), Event: data})
	if err != nil {
		return err
	}

	if _, err := s.file.Write(append(wrapperData, '\n')); err != nil {
		return err
	}
	return s.file.Sync()
}

// AppendAll appends events in order, stopping at the first failure.
func (s *Store) AppendAll(events []engine.Event) error {
	for _, evt := range events {
		if err := s.Append(evt); err != nil {
			return fmt.Errorf("failed to append %s: %w", evt.Type(), err)
		}
	}
	return nil
}

// Load replays all jsonl lines and unpacks them to an Event slice.
func (s *Store) Load() ([]engine.Event, error) {
	var events []engine.Event

	if _, err := s.file.Seek(0, 0); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var wrapper EventWrapper
		if err := json.Unmarshal(scanner.Bytes(), &wrapper); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode wrapper: %w", line, err)
		}

		evt, err := newEvent(wrapper.Type)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := json.Unmarshal(wrapper.Event, evt); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse event data into specific type: %w", line, err)
		}

		events = append(events, evt)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func newEvent(t engine.EventType) (engine.Event, error) {
	switch t {
	case engine.EventSessionStarted:
		return &engine.SessionStartedEvent{}, nil
	case engine.EventNodeEntered:
		return &engine.NodeEnteredEvent{}, nil
	case engine.EventStatChanged:
		return &engine.StatChangedEvent{}, nil
	case engine.EventFlagChanged:
		return &engine.FlagChangedEvent{}, nil
	case engine.EventItemChanged:
		return &engine.ItemChangedEvent{}, nil
	case engine.EventVariableChanged:
		return &engine.VariableChangedEvent{}, nil
	case engine.EventAchievementUnlocked:
		return &engine.AchievementUnlockedEvent{}, nil
	case engine.EventCheckResolved:
		return &engine.CheckResolvedEvent{}, nil
	}
	return nil, fmt.Errorf("unknown event type in log: %s", t)
}

// Close handles safe shutdown.
func (s *Store) Close() error {
	return s.file.Close()
}
