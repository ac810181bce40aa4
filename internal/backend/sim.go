package backend

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/txn"
)

// SimName is the registry name of the simulated backend.
const SimName = "sim"

func init() {
	register(SimName, func(opts Options, logger *slog.Logger) (Backend, error) {
		displays := opts.SimDisplays
		if len(displays) == 0 {
			displays = DefaultSimDisplays()
		}
		return NewSim(displays, logger), nil
	}, false)
}

// SimDisplay is one display of the simulated backend.
type SimDisplay struct {
	Handle    model.Handle
	UUID      string
	Name      string
	Bounds    model.Rect
	Main      bool
	Enabled   bool
	Connected bool
}

// DefaultSimDisplays returns a built-in laptop panel plus external monitor.
func DefaultSimDisplays() []SimDisplay {
	return []SimDisplay{
		{
			Handle:    1,
			UUID:      "37D8832A-2D66-02CA-B9F7-8F30A301B230",
			Name:      "Built-in Panel",
			Bounds:    model.Rect{X: 0, Y: 0, Width: 1512, Height: 982},
			Main:      true,
			Enabled:   true,
			Connected: true,
		},
		{
			Handle:    2,
			UUID:      "E5D1A4C0-8B3E-4F6A-9C2D-1F0B7A6E5D4C",
			Name:      "External Monitor",
			Bounds:    model.Rect{X: 1512, Y: 0, Width: 2560, Height: 1440},
			Enabled:   true,
			Connected: true,
		},
	}
}

type simChange struct {
	handle  model.Handle
	enabled bool
}

// Sim is an in-memory backend. The exported status fields inject failures
// into the corresponding capability calls.
type Sim struct {
	mu        sync.Mutex
	displays  []SimDisplay
	nextToken txn.Token
	open      txn.Token
	pending   []simChange
	logger    *slog.Logger

	BeginStatus    txn.Status
	ToggleStatus   map[model.Handle]txn.Status
	CompleteStatus txn.Status
}

var _ Backend = (*Sim)(nil)

// NewSim creates a simulated backend over displays.
func NewSim(displays []SimDisplay, logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		displays:     append([]SimDisplay(nil), displays...),
		ToggleStatus: make(map[model.Handle]txn.Status),
		logger:       logger,
	}
}

// Name returns SimName.
func (s *Sim) Name() string { return SimName }

// Close is a no-op.
func (s *Sim) Close() error { return nil }

// Displays returns the connected, enabled displays.
func (s *Sim) Displays() ([]model.Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Display
	for _, d := range s.displays {
		if !d.Connected || !d.Enabled {
			continue
		}
		out = append(out, model.Display{Handle: d.Handle, Name: d.Name, Bounds: d.Bounds, Main: d.Main})
	}
	return out, nil
}

// UUIDFor returns the UUID of a connected display.
func (s *Sim) UUIDFor(h model.Handle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.find(h)
	if d == nil || !d.Connected || d.UUID == "" {
		return "", false
	}
	return d.UUID, true
}

// HandleForUUID finds the connected display carrying id.
func (s *Sim) HandleForUUID(id string) (model.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.displays {
		if d.Connected && d.UUID != "" && strings.EqualFold(d.UUID, id) {
			return d.Handle, true
		}
	}
	return 0, false
}

// BeginConfiguration opens a configuration. Only one may be open.
func (s *Sim) BeginConfiguration() (txn.Token, txn.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.BeginStatus.OK() {
		return 0, s.BeginStatus
	}
	if s.open != 0 {
		return 0, txn.StatusInvalidOperation
	}
	s.nextToken++
	s.open = s.nextToken
	s.pending = nil
	return s.open, txn.StatusSuccess
}

// SetDisplayEnabled queues a change on the open configuration.
func (s *Sim) SetDisplayEnabled(tok txn.Token, h model.Handle, enabled bool) txn.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == 0 || tok != s.open {
		return txn.StatusInvalidContext
	}
	if status, ok := s.ToggleStatus[h]; ok && !status.OK() {
		return status
	}
	if d := s.find(h); d == nil || !d.Connected {
		return txn.StatusIllegalArgument
	}
	s.pending = append(s.pending, simChange{handle: h, enabled: enabled})
	return txn.StatusSuccess
}

// CompleteConfiguration applies the queued changes. On an injected failure
// nothing is applied.
func (s *Sim) CompleteConfiguration(tok txn.Token, permanent bool) txn.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == 0 || tok != s.open {
		return txn.StatusInvalidContext
	}
	pending := s.pending
	s.open = 0
	s.pending = nil

	if !s.CompleteStatus.OK() {
		return s.CompleteStatus
	}
	for _, c := range pending {
		if d := s.find(c.handle); d != nil {
			d.Enabled = c.enabled
		}
	}
	s.logger.Debug("sim configuration applied", "changes", len(pending), "permanent", permanent)
	return txn.StatusSuccess
}

// Enabled reports whether the display with handle h is switched on.
func (s *Sim) Enabled(h model.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.find(h)
	return d != nil && d.Enabled
}

// SetConnected simulates hot-plugging the display with handle h.
func (s *Sim) SetConnected(h model.Handle, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.find(h); d != nil {
		d.Connected = connected
	}
}

func (s *Sim) find(h model.Handle) *SimDisplay {
	for i := range s.displays {
		if s.displays[i].Handle == h {
			return &s.displays[i]
		}
	}
	return nil
}
