// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/displayctl/internal/core"
	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/store"
)

// Enumerator lists the displays that are currently online.
type Enumerator interface {
	Displays() ([]model.Display, error)
}

// Operator performs the state-changing actions.
type Operator interface {
	DisableOne(h model.Handle) (core.DisableResult, error)
	RestoreAll() (core.RestoreReport, error)
}

// Record exposes the remembered disabled set.
type Record interface {
	Load() []model.StableID
}

// Notifier is told about every change the TUI makes.
type Notifier interface {
	Notify(summary, body string) error
}

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	displays Enumerator
	operator Operator
	record   Record
	identify func(model.Handle) model.StableID
	notifier Notifier
	logger   *slog.Logger

	mode Mode

	// Components
	list list.Model
	help help.Model
	keys KeyMap

	// State
	online     []model.Display
	remembered []model.StableID
	pending    bool
	width      int
	height     int
	ready      bool

	// Status message
	statusMsg string
	statusErr bool

	// Store file change subscription
	refreshCh <-chan store.ChangeEvent
}

// Option configures a Model.
type Option func(*Model)

// WithNotifier sends a desktop notification after each change.
func WithNotifier(n Notifier) Option {
	return func(m *Model) { m.notifier = n }
}

// WithWatcher refreshes the view whenever the store file changes on disk.
func WithWatcher(ch <-chan store.ChangeEvent) Option {
	return func(m *Model) { m.refreshCh = ch }
}

// WithIdentify shows each display's stable identifier next to it.
func WithIdentify(fn func(model.Handle) model.StableID) Option {
	return func(m *Model) { m.identify = fn }
}

// WithLogger sets the model's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// displayItem wraps a display for the list component.
type displayItem struct {
	display model.Display
	id      model.StableID
	index   int
}

func (i displayItem) Title() string {
	return fmt.Sprintf("[%d] %s", i.index, i.display.Label())
}

func (i displayItem) Description() string {
	if i.id == "" {
		return i.display.Bounds.String()
	}
	return string(i.id)
}

func (i displayItem) FilterValue() string {
	return i.display.Name + " " + string(i.id)
}

// New creates a new TUI model.
func New(displays Enumerator, operator Operator, record Record, opts ...Option) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Displays"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := Model{
		displays: displays,
		operator: operator,
		record:   record,
		logger:   slog.Default(),
		mode:     ModeList,
		list:     l,
		help:     help.New(),
		keys:     DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.load,
		m.watchForChanges,
	)
}

type loadedMsg struct {
	displays   []model.Display
	remembered []model.StableID
	err        error
}

// load enumerates displays and reads the record. Handles from an earlier
// enumeration are discarded.
func (m Model) load() tea.Msg {
	displays, err := m.displays.Displays()
	var remembered []model.StableID
	if m.record != nil {
		remembered = m.record.Load()
	}
	return loadedMsg{displays: displays, remembered: remembered, err: err}
}

// watchForChanges waits for the next store file change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return recordChangedMsg{}
}

type recordChangedMsg struct{}

type disabledMsg struct {
	display model.Display
	result  core.DisableResult
	err     error
}

type restoredMsg struct {
	report core.RestoreReport
	err    error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case loadedMsg:
		m.online = msg.displays
		m.remembered = msg.remembered
		m.list.SetItems(m.buildListItems())
		m.list.Title = fmt.Sprintf("Displays (%d remembered off)", len(model.Dedupe(m.remembered)))
		if msg.err != nil {
			m.logger.Warn("failed to enumerate displays", "error", msg.err)
			return m, setStatus("Could not list displays: "+msg.err.Error(), true)
		}
		return m, nil

	case recordChangedMsg:
		if m.pending {
			return m, m.watchForChanges
		}
		return m, tea.Batch(m.load, m.watchForChanges)

	case disabledMsg:
		m.pending = false
		return m, tea.Batch(m.load, m.disabledStatus(msg))

	case restoredMsg:
		m.pending = false
		return m, tea.Batch(m.load, m.restoredStatus(msg))

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Disable):
		item, ok := m.list.SelectedItem().(displayItem)
		if !ok {
			return m, nil
		}
		if m.pending {
			return m, setStatus("A display change is still in progress", true)
		}
		m.pending = true
		return m, m.disable(item.display)

	case key.Matches(msg, m.keys.RestoreAll):
		if m.pending {
			return m, setStatus("A display change is still in progress", true)
		}
		m.pending = true
		return m, m.restoreAll

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) disable(d model.Display) tea.Cmd {
	return func() tea.Msg {
		result, err := m.operator.DisableOne(d.Handle)
		return disabledMsg{display: d, result: result, err: err}
	}
}

func (m Model) restoreAll() tea.Msg {
	report, err := m.operator.RestoreAll()
	return restoredMsg{report: report, err: err}
}

func (m Model) disabledStatus(msg disabledMsg) tea.Cmd {
	label := msg.display.Label()
	switch {
	case errors.Is(msg.err, core.ErrStoreInconsistent):
		m.notify("Display disabled", label+" (not recorded)")
		return setStatus("Disabled "+label+", but it could not be recorded", true)
	case msg.err != nil:
		return setStatus("Failed to disable "+label+": "+msg.err.Error(), true)
	default:
		m.notify("Display disabled", label)
		return setStatus(fmt.Sprintf("Disabled %s as %s", label, msg.result.ID), false)
	}
}

func (m Model) restoredStatus(msg restoredMsg) tea.Cmd {
	if msg.err != nil && !errors.Is(msg.err, core.ErrStoreInconsistent) {
		return setStatus("Failed to restore displays: "+msg.err.Error(), true)
	}

	report := msg.report
	for _, w := range report.Warnings() {
		m.logger.Warn("restore", "warning", w)
	}
	if report.Changed() {
		m.notify("Displays restored", report.Summary())
	}

	text := report.Summary()
	if warnings := report.Warnings(); len(warnings) > 0 {
		text += " (" + strings.Join(warnings, "; ") + ")"
	}
	isErr := msg.err != nil || report.CommitErr != nil || len(report.Failed) > 0
	if msg.err != nil {
		text += ": record may be stale"
	}
	return setStatus(text, isErr)
}

func (m Model) notify(summary, body string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(summary, body); err != nil {
		m.logger.Debug("desktop notification failed", "error", err)
	}
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// buildListItems creates list items from the online displays.
func (m Model) buildListItems() []list.Item {
	items := make([]list.Item, len(m.online))
	for i, d := range m.online {
		item := displayItem{display: d, index: i}
		if m.identify != nil {
			item.id = m.identify(d.Handle)
		}
		items[i] = item
	}
	return items
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.mode == ModeHelp {
		return m.viewHelp()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	s := m.list.View()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else {
		s += "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return s
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp()) + "\n\n"

	s += labelStyle.Render("Remembered as disabled:") + "\n"
	if len(m.remembered) == 0 {
		s += "  (none)\n"
	}
	for _, id := range model.Dedupe(m.remembered) {
		s += "  " + string(id) + "\n"
	}
	return s
}
