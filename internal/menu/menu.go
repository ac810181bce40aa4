// Package menu implements the numbered text menu that drives the display
// state manager from a line-oriented terminal.
package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/displayctl/internal/core"
	"github.com/jmylchreest/displayctl/internal/model"
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

// Notifier is told about every change the menu makes.
type Notifier interface {
	Notify(summary, body string) error
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Loop reads menu selections line by line until the operator exits or the
// input ends.
type Loop struct {
	in       *bufio.Reader
	out      io.Writer
	displays Enumerator
	operator Operator
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithNotifier sends a desktop notification after each change.
func WithNotifier(n Notifier) Option {
	return func(l *Loop) { l.notifier = n }
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a menu loop.
func New(in io.Reader, out io.Writer, displays Enumerator, operator Operator, opts ...Option) *Loop {
	l := &Loop{
		in:       bufio.NewReader(in),
		out:      out,
		displays: displays,
		operator: operator,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run presents the menu until the exit item is chosen or input ends. It
// only returns an error when the input itself cannot be read.
func (l *Loop) Run() error {
	for {
		displays := l.enumerate()
		l.render(displays)

		line, err := l.readLine()
		if err != nil {
			fmt.Fprintln(l.out)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		choice, err := strconv.Atoi(line)
		if err != nil {
			l.printf(errStyle, "Invalid selection %q: enter a number", abbreviate(line))
			continue
		}

		restore, exit := len(displays), len(displays)+1
		switch {
		case choice >= 0 && choice < restore:
			l.disable(displays[choice])
		case choice == restore:
			l.restore()
		case choice == exit:
			return nil
		default:
			l.printf(errStyle, "Invalid selection %d: choose between 0 and %d", choice, exit)
		}
	}
}

// enumerate refreshes the display list. Handles are only valid until the
// next enumeration, so this runs before every prompt.
func (l *Loop) enumerate() []model.Display {
	displays, err := l.displays.Displays()
	if err != nil {
		l.logger.Warn("failed to enumerate displays", "error", err)
		l.printf(errStyle, "Could not list displays: %v", err)
		return nil
	}
	return displays
}

func (l *Loop) render(displays []model.Display) {
	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, headerStyle.Render(fmt.Sprintf("Active displays: %d", len(displays))))
	for i, d := range displays {
		fmt.Fprintf(l.out, "  [%d] Disable %s\n", i, d.Label())
	}
	fmt.Fprintln(l.out, actionStyle.Render(fmt.Sprintf("  [%d] Restore all disabled displays", len(displays))))
	fmt.Fprintln(l.out, actionStyle.Render(fmt.Sprintf("  [%d] Exit", len(displays)+1)))
	fmt.Fprint(l.out, "Select an option: ")
}

// readLine returns the next line of input with no length limit. A final
// line without a newline is still returned before io.EOF.
func (l *Loop) readLine() (string, error) {
	line, err := l.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// abbreviate shortens s for echoing back to the operator.
func abbreviate(s string) string {
	const limit = 32
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func (l *Loop) disable(d model.Display) {
	result, err := l.operator.DisableOne(d.Handle)
	switch {
	case errors.Is(err, core.ErrStoreInconsistent):
		l.printf(warnStyle, "Disabled %s, but it could not be recorded: %v", d.Label(), err)
		l.notify("Display disabled", fmt.Sprintf("%s (not recorded)", d.Label()))
	case err != nil:
		l.printf(errStyle, "Failed to disable %s: %v", d.Label(), err)
	default:
		l.printf(okStyle, "Disabled %s as %s", d.Label(), result.ID)
		l.notify("Display disabled", d.Label())
	}
}

func (l *Loop) restore() {
	report, err := l.operator.RestoreAll()
	if err != nil && !errors.Is(err, core.ErrStoreInconsistent) {
		l.printf(errStyle, "Failed to restore displays: %v", err)
		return
	}

	l.printf(okStyle, "%s", report.Summary())
	for _, w := range report.Warnings() {
		l.printf(warnStyle, "Warning: %s", w)
	}
	if err != nil {
		l.printf(warnStyle, "Warning: %v", err)
	}
	if report.Changed() {
		l.notify("Displays restored", report.Summary())
	}
}

func (l *Loop) notify(summary, body string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(summary, body); err != nil {
		l.logger.Debug("desktop notification failed", "error", err)
	}
}

func (l *Loop) printf(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(l.out, style.Render(fmt.Sprintf(format, args...)))
}
