package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/data"
	"github.com/MarianRusoiu99/text-based-sub001/internal/engine"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// ErrUnknownCommand is returned for player input that matches no command.
var ErrUnknownCommand = errors.New("unknown command")

// Store defines the dependency required by Session to persist events
type Store interface {
	Append(evt engine.Event) error
	Load() ([]engine.Event, error)
	Close() error
}

// Response is what a command produced: text for the player and any events recorded.
type Response struct {
	Text   string
	Events []engine.Event
}

// Session manages the loop of taking player input, executing it against the story,
// persisting events and projecting PlayState. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	story    *engine.Story
	template *rules.RuleTemplate
	eval     *engine.Evaluator
	store    Store
	state    *engine.PlayState
	logger   *zap.Logger
}

// NewSession loads a story and its template, replays the store and starts the story
// when the log is empty.
func NewSession(loader *data.Loader, storyName string, store Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	story, err := loader.LoadStory(storyName)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	var tmpl *rules.RuleTemplate
	if story.Template != "" {
		tmpl, err = loader.LoadTemplate(story.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule template: %w", err)
		}
	}
	return New(story, tmpl, store, logger)
}

// New builds a session from an already loaded story and template.
func New(story *engine.Story, tmpl *rules.RuleTemplate, store Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eval, err := engine.NewEvaluator()
	if err != nil {
		return nil, err
	}
	if err := story.Validate(tmpl, eval); err != nil {
		return nil, fmt.Errorf("story %s is invalid: %w", story.ID, err)
	}

	s := &Session{
		story:    story,
		template: tmpl,
		eval:     eval,
		store:    store,
		logger:   logger.With(zap.String("story", story.ID)),
	}
	if err := s.RebuildState(); err != nil {
		return nil, err
	}

	if s.state.NodeID == "" {
		events, err := engine.Start(story, tmpl)
		if err != nil {
			return nil, fmt.Errorf("failed to start story: %w", err)
		}
		if err := s.applyAll(events); err != nil {
			return nil, err
		}
		s.logger.Info("story started", zap.String("node", s.state.NodeID))
	}
	return s, nil
}

// RebuildState reads the entire event log from the store and projects the latest PlayState
func (s *Session) RebuildState() error {
	events, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}

	state, err := engine.NewProjector().Build(s.template, events)
	if err != nil {
		return fmt.Errorf("failed to project play state: %w", err)
	}

	s.state = state
	s.logger.Debug("state rebuilt", zap.Int("events", len(events)))
	return nil
}

// State returns a copy of the current projected PlayState.
func (s *Session) State() *engine.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Story returns the story being played.
func (s *Session) Story() *engine.Story { return s.story }

// Template returns the story's rule template, or nil for stories without one.
func (s *Session) Template() *rules.RuleTemplate { return s.template }

// CurrentNode returns the node the player is on.
func (s *Session) CurrentNode() *engine.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, _ := s.story.Node(s.state.NodeID)
	return node
}

// AvailableChoices lists the choices the player can currently take.
func (s *Session) AvailableChoices() ([]engine.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.AvailableChoices(s.state, s.story, s.eval)
}

// Describe renders the current node and its numbered choices.
func (s *Session) Describe() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.describe()
}

// Execute runs one line of player input.
func (s *Session) Execute(input string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := ParseInput(input)
	switch in.Command {
	case "choose", "go":
		return s.choose(in)
	case "look", "l":
		text, err := s.describe()
		return &Response{Text: text}, err
	case "stats":
		return &Response{Text: s.statsText()}, nil
	case "inventory", "inv", "i":
		return &Response{Text: s.inventoryText()}, nil
	case "check":
		return s.dryCheck(in)
	case "formula":
		return s.formula(in)
	case "help", "?":
		return &Response{Text: helpText}, nil
	case "":
		return nil, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, in.Command)
}

func (s *Session) choose(in ParsedInput) (*Response, error) {
	key := ""
	switch {
	case in.Index > 0:
		choices, err := engine.AvailableChoices(s.state, s.story, s.eval)
		if err != nil {
			return nil, err
		}
		if in.Index > len(choices) {
			return nil, fmt.Errorf("%w: there is no choice %d", engine.ErrUnknownChoice, in.Index)
		}
		key = choices[in.Index-1].Key
	case len(in.Args) > 0:
		key = in.Args[0]
	default:
		return nil, fmt.Errorf("%w: choose what?", engine.ErrUnknownChoice)
	}

	events, err := engine.ExecuteChoice(key, s.state, s.story, s.template, s.eval)
	if err != nil {
		s.logger.Warn("choice rejected", zap.String("choice", key), zap.Error(err))
		return nil, err
	}
	if err := s.applyAll(events); err != nil {
		return nil, err
	}
	s.logger.Info("choice executed",
		zap.String("choice", key),
		zap.String("node", s.state.NodeID),
		zap.Int("events", len(events)))

	var lines []string
	for _, evt := range events {
		if msg := evt.Message(); msg != "" && evt.Type() != engine.EventNodeEntered {
			lines = append(lines, msg)
		}
	}
	text, err := s.describe()
	if err != nil {
		return nil, err
	}
	lines = append(lines, text)
	return &Response{Text: strings.Join(lines, "\n\n"), Events: events}, nil
}

// dryCheck resolves a template check against the current character, with optional stat
// overrides, without recording anything.
func (s *Session) dryCheck(in ParsedInput) (*Response, error) {
	if s.template == nil || len(in.Args) == 0 {
		return nil, fmt.Errorf("usage: check <id> [stat: value]...")
	}
	check, ok := s.template.FindCheck(in.Args[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownCheck, in.Args[0])
	}
	char, err := s.withOverrides(in.Params)
	if err != nil {
		return nil, err
	}
	res, err := rules.PerformCheck(check, char)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("dry check", zap.String("check", check.ID), zap.Float64("total", res.Total), zap.Bool("success", res.Success))
	return &Response{Text: engine.FormatCheck(*res)}, nil
}

func (s *Session) formula(in ParsedInput) (*Response, error) {
	if s.template == nil || len(in.Args) == 0 {
		return nil, fmt.Errorf("usage: formula <id> [stat: value]...")
	}
	f, ok := s.template.FindFormula(in.Args[0])
	if !ok {
		return nil, fmt.Errorf("unknown formula: %s", in.Args[0])
	}
	char, err := s.withOverrides(in.Params)
	if err != nil {
		return nil, err
	}
	res, err := rules.EvaluateFormula(f, char)
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("%s = %v", f.ID, res.Result)}, nil
}

func (s *Session) withOverrides(params map[string]any) (*rules.CharacterState, error) {
	char := s.state.Character.Clone()
	for k, v := range params {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("override %s takes a single value", k)
		}
		if n, ok := rules.ToNumber(str); ok {
			char.Stats[k] = n
		} else {
			char.Stats[k] = str
		}
	}
	return char, nil
}

// applyAll commits events to the store and updates memory, in order.
func (s *Session) applyAll(events []engine.Event) error {
	for _, evt := range events {
		if err := s.ApplyAndAppend(evt); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAndAppend commits a finalized event to the store and updates memory
func (s *Session) ApplyAndAppend(evt engine.Event) error {
	if err := s.store.Append(evt); err != nil {
		return fmt.Errorf("failed to persist event log: %w", err)
	}
	if err := evt.Apply(s.state); err != nil {
		return fmt.Errorf("failed to apply event to memory state: %w", err)
	}
	return nil
}

func (s *Session) describe() (string, error) {
	node, ok := s.story.Node(s.state.NodeID)
	if !ok {
		return "", fmt.Errorf("%w: %s", engine.ErrUnknownNode, s.state.NodeID)
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(node.Text))
	if s.state.Ended {
		sb.WriteString("\n\nThe End.")
		return sb.String(), nil
	}

	choices, err := engine.AvailableChoices(s.state, s.story, s.eval)
	if err != nil {
		return "", err
	}
	if len(choices) > 0 {
		sb.WriteString("\n")
	}
	for i, c := range choices {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, c.Text))
	}
	return sb.String(), nil
}

func (s *Session) statsText() string {
	char := s.state.Character
	var sb strings.Builder
	sb.WriteString("Stats:")

	seen := map[string]bool{}
	if s.template != nil {
		for _, def := range s.template.Stats {
			seen[def.ID] = true
			sb.WriteString(fmt.Sprintf("\n  %s: %v", def.Name, char.Stats[def.ID]))
		}
	}
	var extra []string
	for k := range char.Stats {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		sb.WriteString(fmt.Sprintf("\n  %s: %v", k, char.Stats[k]))
	}

	if len(char.Flags) > 0 {
		flags := make([]string, 0, len(char.Flags))
		for f := range char.Flags {
			flags = append(flags, f)
		}
		sort.Strings(flags)
		sb.WriteString("\nFlags: " + strings.Join(flags, ", "))
	}
	if len(char.Achievements) > 0 {
		sb.WriteString("\nAchievements: " + strings.Join(char.Achievements, ", "))
	}
	return sb.String()
}

func (s *Session) inventoryText() string {
	inv := s.state.Character.Inventory
	if len(inv) == 0 {
		return "Your pack is empty."
	}
	var sb strings.Builder
	sb.WriteString("Inventory:")
	for _, it := range inv {
		sb.WriteString(fmt.Sprintf("\n  %s x%d", it.Name, it.Quantity))
	}
	return sb.String()
}

const helpText = `Commands:
  <n>                  take choice number n
  choose <key>         take a choice by key
  look                 describe the current scene
  stats                show character stats and flags
  inventory            list carried items
  check <id> [s: v]    try a check without committing it
  formula <id> [s: v]  evaluate a template formula
  help                 show this message`
