package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MarianRusoiu99/text-based-sub001/internal/session"
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#5A3E8C")).Padding(0, 1)
	infoStyle         = lipgloss.NewStyle().Faint(true)
	stateBoxStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("#874BFD")).Padding(0, 1)
	logBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3C8D6E")).Padding(0, 1)
	autocompleteStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#D9822B"))
)

var playCommands = []string{"look", "stats", "inventory", "help", "check ", "formula ", "choose ", "exit"}

// suggestion is a completion shown in the dropdown list.
type suggestion string

func (s suggestion) FilterValue() string { return string(s) }
func (s suggestion) Title() string       { return string(s) }
func (s suggestion) Description() string { return "" }

type playModel struct {
	sess        *session.Session
	textInput   textinput.Model
	viewport    viewport.Model
	suggestions list.Model
	history     []string
	historyIdx  int
	logContent  string
	width       int
	height      int
	storyName   string
	slot        string
	showList    bool
}

func newPlayModel(sess *session.Session, storyName, slot string) playModel {
	ti := textinput.New()
	ti.Placeholder = "Choice number or command (help lists them)..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	intro, err := sess.Describe()
	if err != nil {
		intro = fmt.Sprintf("Error: %v", err)
	}

	vp := viewport.New(0, 0)
	vp.SetContent(intro)

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	delegate.SetSpacing(0)
	sugList := list.New([]list.Item{}, delegate, 50, 7)
	sugList.SetShowTitle(false)
	sugList.SetShowStatusBar(false)
	sugList.SetFilteringEnabled(false)
	sugList.SetShowHelp(false)

	return playModel{
		sess:        sess,
		textInput:   ti,
		viewport:    vp,
		suggestions: sugList,
		history:     []string{},
		historyIdx:  -1,
		logContent:  intro,
		storyName:   storyName,
		slot:        slot,
	}
}

func (m *playModel) Init() tea.Cmd {
	return textinput.Blink
}

// completions returns the inputs that extend val: commands, then choice keys and
// template check or formula IDs after their command word.
func (m *playModel) completions(val string) []string {
	if val == "" {
		return nil
	}
	lower := strings.ToLower(val)
	var out []string
	for _, c := range playCommands {
		if strings.HasPrefix(c, lower) && len(val) < len(c) {
			out = append(out, c)
		}
	}

	cmdWord, rest, ok := strings.Cut(lower, " ")
	if !ok {
		return out
	}
	var ids []string
	switch cmdWord {
	case "choose", "go":
		choices, err := m.sess.AvailableChoices()
		if err != nil {
			return out
		}
		for _, c := range choices {
			ids = append(ids, c.Key)
		}
	case "check":
		if tmpl := m.sess.Template(); tmpl != nil {
			for _, c := range tmpl.Checks {
				ids = append(ids, c.ID)
			}
		}
	case "formula":
		if tmpl := m.sess.Template(); tmpl != nil {
			for _, f := range tmpl.Formulas {
				ids = append(ids, f.ID)
			}
		}
	}
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), rest) && len(rest) < len(id) {
			out = append(out, val[:len(cmdWord)+1]+id)
		}
	}
	return out
}

func (m *playModel) updateSuggestions() {
	var items []list.Item
	for _, c := range m.completions(m.textInput.Value()) {
		items = append(items, suggestion(c))
	}
	m.suggestions.SetItems(items)
	m.showList = len(items) > 0
	if m.showList {
		h := min(len(items), 10)
		m.suggestions.SetHeight(max(h, 4))
		m.suggestions.ResetSelected()
	}
}

// submit runs one line of input and appends the exchange to the log.
func (m *playModel) submit(val string) {
	if len(m.history) == 0 || m.history[len(m.history)-1] != val {
		m.history = append(m.history, val)
	}
	m.historyIdx = -1

	m.logContent += fmt.Sprintf("\n\n> %s\n", val)
	resp, err := m.sess.Execute(val)
	if err != nil {
		m.logContent += fmt.Sprintf("Error: %v", err)
	} else {
		m.logContent += resp.Text
	}
	m.viewport.SetContent(m.logContent)
	m.viewport.GotoBottom()
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width - 4
		m.suggestions.SetWidth(msg.Width - 6)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)
	m.layout()

	return m, tea.Batch(cmds...)
}

// handleKey reacts to a key press and reports whether the player asked to leave.
func (m *playModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	var cmd tea.Cmd
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return nil, true
	case tea.KeyUp, tea.KeyDown:
		if m.showList {
			m.suggestions, cmd = m.suggestions.Update(msg)
			return cmd, false
		}
		m.recall(msg.Type == tea.KeyUp)
	case tea.KeyTab:
		if i, ok := m.suggestions.SelectedItem().(suggestion); ok && m.showList {
			m.textInput.SetValue(string(i))
			m.textInput.CursorEnd()
			m.updateSuggestions()
		}
	case tea.KeyEnter:
		val := strings.TrimSpace(m.textInput.Value())
		switch val {
		case "exit", "quit":
			return nil, true
		case "":
			return nil, false
		}
		m.textInput.SetValue("")
		m.updateSuggestions()
		m.submit(val)
	default:
		m.textInput, cmd = m.textInput.Update(msg)
		m.updateSuggestions()
	}
	return cmd, false
}

// recall steps through earlier inputs; stepping past the newest clears the prompt.
func (m *playModel) recall(older bool) {
	if len(m.history) == 0 {
		return
	}
	switch {
	case older && m.historyIdx == -1:
		m.historyIdx = len(m.history) - 1
	case older && m.historyIdx > 0:
		m.historyIdx--
	case !older && m.historyIdx == -1:
		return
	case !older && m.historyIdx < len(m.history)-1:
		m.historyIdx++
	case !older:
		m.historyIdx = -1
		m.textInput.SetValue("")
		m.updateSuggestions()
		return
	}
	m.textInput.SetValue(m.history[m.historyIdx])
	m.updateSuggestions()
}

// layout gives the log whatever height the other panes leave.
func (m *playModel) layout() {
	fixed := lipgloss.Height(titleStyle.Render(" ")) +
		lipgloss.Height(m.renderState()) +
		lipgloss.Height(infoStyle.Render(" ")) +
		1 + 4 // prompt line and log borders
	if m.showList {
		fixed += m.suggestions.Height() + 2
	}
	m.viewport.Height = max(m.height-fixed, 4)
}

func (m *playModel) renderState() string {
	state := m.sess.State()
	char := state.Character

	var lines []string
	if tmpl := m.sess.Template(); tmpl != nil {
		var stats []string
		for _, def := range tmpl.Stats {
			stats = append(stats, fmt.Sprintf("%s %v", def.Name, char.Stats[def.ID]))
		}
		lines = append(lines, strings.Join(stats, " | "))
	}

	if len(char.Inventory) > 0 {
		var items []string
		for _, it := range char.Inventory {
			items = append(items, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
		}
		lines = append(lines, "Pack: "+strings.Join(items, ", "))
	}
	if len(char.Flags) > 0 {
		flags := make([]string, 0, len(char.Flags))
		for f := range char.Flags {
			flags = append(flags, f)
		}
		sort.Strings(flags)
		lines = append(lines, "Flags: "+strings.Join(flags, ", "))
	}
	if state.Ended {
		lines = append(lines, "The story has ended.")
	}
	if len(lines) == 0 {
		lines = append(lines, "No character stats.")
	}

	return stateBoxStyle.Width(max(m.width-4, 20)).Render(strings.Join(lines, "\n"))
}

func (m *playModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	title := titleStyle.Render(fmt.Sprintf(" %s | %s ", m.sess.Story().Title, m.slot))
	logBox := logBoxStyle.Width(m.width - 4).Render(m.viewport.View())

	inputArea := m.textInput.View()
	if m.showList {
		inputArea = fmt.Sprintf("%s\n%s", inputArea, autocompleteStyle.Render(m.suggestions.View()))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.renderState(),
		logBox,
		inputArea,
		infoStyle.Render("esc quits · tab completes · ↑/↓ recalls input"),
	)
}

// RunTUI plays the session in a full-screen terminal interface.
func RunTUI(sess *session.Session, storyName, slot string) error {
	m := newPlayModel(sess, storyName, slot)
	_, err := tea.NewProgram(&m, tea.WithAltScreen()).Run()
	return err
}
