//go:build linux

package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/txn"
)

// RandRName is the registry name of the X11 RandR backend.
const RandRName = "randr"

func init() {
	register(RandRName, func(_ Options, logger *slog.Logger) (Backend, error) {
		return NewRandR(logger)
	}, true)
}

// edidMaxLongs bounds EDID property reads (4-byte units); 256 covers a base
// block plus extension blocks.
const edidMaxLongs = 256

type randrChange struct {
	output  randr.Output
	enabled bool
}

// RandR drives display outputs through the X11 RandR extension. Outputs are
// the display handles; a connected output without a CRTC is a disabled
// display.
type RandR struct {
	xu       *xgbutil.XUtil
	root     xproto.Window
	edidAtom xproto.Atom
	logger   *slog.Logger

	mu        sync.Mutex
	nextToken txn.Token
	open      txn.Token
	pending   []randrChange
}

var _ Backend = (*RandR)(nil)

// NewRandR connects to the X server named by $DISPLAY and initializes RandR.
func NewRandR(logger *slog.Logger) (*RandR, error) {
	if logger == nil {
		logger = slog.Default()
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to X11: %w", ErrUnavailable, err)
	}
	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: randr init failed: %w", ErrUnavailable, err)
	}
	version, err := randr.QueryVersion(xu.Conn(), 1, 3).Reply()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: randr version query failed: %w", ErrUnavailable, err)
	}
	if version.MajorVersion < 1 || (version.MajorVersion == 1 && version.MinorVersion < 3) {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: randr %d.%d is older than 1.3", ErrUnavailable, version.MajorVersion, version.MinorVersion)
	}

	edidAtom, err := xprop.Atm(xu, "EDID")
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: failed to intern EDID atom: %w", ErrUnavailable, err)
	}

	logger.Debug("connected to X11 RandR", "major", version.MajorVersion, "minor", version.MinorVersion)
	return &RandR{
		xu:       xu,
		root:     xu.RootWin(),
		edidAtom: edidAtom,
		logger:   logger,
	}, nil
}

// Name returns RandRName.
func (r *RandR) Name() string { return RandRName }

// Close disconnects from the X server.
func (r *RandR) Close() error {
	r.xu.Conn().Close()
	return nil
}

type outputState struct {
	output randr.Output
	info   *randr.GetOutputInfoReply
}

func (r *RandR) resources() (*randr.GetScreenResourcesCurrentReply, error) {
	res, err := randr.GetScreenResourcesCurrent(r.xu.Conn(), r.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}
	return res, nil
}

// connectedOutputs lists every output with a monitor attached, enabled or not.
func (r *RandR) connectedOutputs(res *randr.GetScreenResourcesCurrentReply) []outputState {
	var out []outputState
	for _, o := range res.Outputs {
		info, err := randr.GetOutputInfo(r.xu.Conn(), o, res.ConfigTimestamp).Reply()
		if err != nil {
			r.logger.Debug("failed to query output", "output", o, "error", err)
			continue
		}
		if info.Connection != randr.ConnectionConnected {
			continue
		}
		out = append(out, outputState{output: o, info: info})
	}
	return out
}

// Displays returns the connected outputs that currently drive a CRTC.
func (r *RandR) Displays() ([]model.Display, error) {
	res, err := r.resources()
	if err != nil {
		return nil, err
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(r.xu.Conn(), r.root).Reply(); err == nil {
		primary = reply.Output
	}

	var displays []model.Display
	for _, o := range r.connectedOutputs(res) {
		if o.info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(r.xu.Conn(), o.info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil || crtc.Width == 0 || crtc.Height == 0 {
			continue
		}
		displays = append(displays, model.Display{
			Handle: model.Handle(o.output),
			Name:   string(o.info.Name),
			Bounds: model.Rect{
				X:      int(crtc.X),
				Y:      int(crtc.Y),
				Width:  int(crtc.Width),
				Height: int(crtc.Height),
			},
			Main: o.output == primary,
		})
	}

	// Without a primary output the display at the origin is the main one.
	if primary == 0 {
		for i := range displays {
			if displays[i].Bounds.X == 0 && displays[i].Bounds.Y == 0 {
				displays[i].Main = true
				break
			}
		}
	}

	return displays, nil
}

func (r *RandR) edid(o randr.Output) (EDID, error) {
	reply, err := randr.GetOutputProperty(r.xu.Conn(), o, r.edidAtom, xproto.Atom(xproto.GetPropertyTypeAny),
		0, edidMaxLongs, false, false).Reply()
	if err != nil {
		return EDID{}, err
	}
	return ParseEDID(reply.Data)
}

// edidOutputs reads the EDID of every connected output. Outputs without a
// usable EDID are left out.
func (r *RandR) edidOutputs() ([]edidOutput, error) {
	res, err := r.resources()
	if err != nil {
		return nil, err
	}
	var outputs []edidOutput
	for _, o := range r.connectedOutputs(res) {
		e, err := r.edid(o.output)
		if err != nil {
			r.logger.Debug("no usable EDID for output", "output", o.output, "error", err)
			continue
		}
		outputs = append(outputs, edidOutput{
			handle:    model.Handle(o.output),
			connector: string(o.info.Name),
			edid:      e,
			enabled:   o.info.Crtc != 0,
		})
	}
	return outputs, nil
}

// UUIDFor derives a UUID from the output's EDID.
func (r *RandR) UUIDFor(h model.Handle) (string, bool) {
	outputs, err := r.edidOutputs()
	if err != nil {
		r.logger.Debug("uuid lookup failed", "error", err)
		return "", false
	}
	return outputUUID(outputs, h)
}

// HandleForUUID searches all connected outputs, including disabled ones.
func (r *RandR) HandleForUUID(id string) (model.Handle, bool) {
	outputs, err := r.edidOutputs()
	if err != nil {
		r.logger.Debug("uuid lookup failed", "error", err)
		return 0, false
	}
	return matchUUID(outputs, id)
}

// BeginConfiguration opens a configuration. Changes are queued until
// CompleteConfiguration.
func (r *RandR) BeginConfiguration() (txn.Token, txn.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.open != 0 {
		return 0, txn.StatusInvalidOperation
	}
	r.nextToken++
	r.open = r.nextToken
	r.pending = nil
	return r.open, txn.StatusSuccess
}

// SetDisplayEnabled validates h and queues the change.
func (r *RandR) SetDisplayEnabled(tok txn.Token, h model.Handle, enabled bool) txn.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tok == 0 || tok != r.open {
		return txn.StatusInvalidContext
	}
	res, err := r.resources()
	if err != nil {
		return txn.StatusInvalidConnection
	}
	info, err := randr.GetOutputInfo(r.xu.Conn(), randr.Output(h), res.ConfigTimestamp).Reply()
	if err != nil {
		return txn.StatusIllegalArgument
	}
	if info.Connection != randr.ConnectionConnected {
		return txn.StatusIllegalArgument
	}
	if enabled && len(info.Modes) == 0 {
		return txn.StatusRangeCheck
	}
	r.pending = append(r.pending, randrChange{output: randr.Output(h), enabled: enabled})
	return txn.StatusSuccess
}

// CompleteConfiguration applies the queued changes with the server grabbed.
// RandR changes always last for the X session, so permanent has no effect.
func (r *RandR) CompleteConfiguration(tok txn.Token, permanent bool) txn.Status {
	r.mu.Lock()
	pending := r.pending
	valid := tok != 0 && tok == r.open
	if valid {
		r.open = 0
		r.pending = nil
	}
	r.mu.Unlock()

	if !valid {
		return txn.StatusInvalidContext
	}
	if len(pending) == 0 {
		return txn.StatusSuccess
	}

	conn := r.xu.Conn()
	if err := xproto.GrabServerChecked(conn).Check(); err != nil {
		r.logger.Warn("failed to grab X server", "error", err)
		return txn.StatusInvalidConnection
	}
	defer xproto.UngrabServerChecked(conn).Check()

	var failed bool
	for _, c := range pending {
		var err error
		if c.enabled {
			err = r.enableOutput(c.output)
		} else {
			err = r.disableOutput(c.output)
		}
		if err != nil {
			r.logger.Warn("failed to apply output change", "output", c.output, "enabled", c.enabled, "error", err)
			failed = true
		}
	}
	r.logger.Debug("randr configuration applied", "changes", len(pending), "permanent", permanent, "failed", failed)

	if failed {
		return txn.StatusCannotComplete
	}
	return txn.StatusSuccess
}

var errSetCrtcRejected = errors.New("crtc configuration rejected")

func (r *RandR) setCrtc(res *randr.GetScreenResourcesCurrentReply, crtc randr.Crtc, x, y int16, mode randr.Mode, outputs []randr.Output) error {
	reply, err := randr.SetCrtcConfig(r.xu.Conn(), crtc, res.Timestamp, res.ConfigTimestamp,
		x, y, mode, randr.RotationRotate0, outputs).Reply()
	if err != nil {
		return err
	}
	if reply.Status != randr.SetConfigSuccess {
		return fmt.Errorf("%w: status %d", errSetCrtcRejected, reply.Status)
	}
	return nil
}

func (r *RandR) disableOutput(o randr.Output) error {
	res, err := r.resources()
	if err != nil {
		return err
	}
	info, err := randr.GetOutputInfo(r.xu.Conn(), o, res.ConfigTimestamp).Reply()
	if err != nil {
		return err
	}
	if info.Crtc == 0 {
		return nil // already off
	}
	return r.setCrtc(res, info.Crtc, 0, 0, 0, nil)
}

// enableOutput lights o with its preferred mode on a free CRTC, placed to
// the right of the current layout.
func (r *RandR) enableOutput(o randr.Output) error {
	res, err := r.resources()
	if err != nil {
		return err
	}
	info, err := randr.GetOutputInfo(r.xu.Conn(), o, res.ConfigTimestamp).Reply()
	if err != nil {
		return err
	}
	if info.Crtc != 0 {
		return nil // already on
	}
	if len(info.Modes) == 0 {
		return fmt.Errorf("output %s has no modes", info.Name)
	}

	// Preferred modes come first in the list.
	mode := info.Modes[0]
	var width, height int
	for _, mi := range res.Modes {
		if randr.Mode(mi.Id) == mode {
			width, height = int(mi.Width), int(mi.Height)
			break
		}
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("unknown mode %d for output %s", mode, info.Name)
	}

	var free randr.Crtc
	right, bottom := 0, 0
	for _, c := range res.Crtcs {
		ci, err := randr.GetCrtcInfo(r.xu.Conn(), c, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if len(ci.Outputs) == 0 {
			if free == 0 && containsCrtc(info.Crtcs, c) {
				free = c
			}
			continue
		}
		right = max(right, int(ci.X)+int(ci.Width))
		bottom = max(bottom, int(ci.Y)+int(ci.Height))
	}
	if free == 0 {
		return fmt.Errorf("no free crtc for output %s", info.Name)
	}

	if err := r.growScreen(right+width, max(bottom, height)); err != nil {
		return err
	}
	return r.setCrtc(res, free, int16(right), 0, mode, []randr.Output{o})
}

// growScreen enlarges the X screen to at least width x height, keeping the
// physical size proportional.
func (r *RandR) growScreen(width, height int) error {
	screen := r.xu.Screen()
	curW, curH := int(screen.WidthInPixels), int(screen.HeightInPixels)
	if width <= curW && height <= curH {
		return nil
	}
	width, height = max(width, curW), max(height, curH)

	mmW := uint32(screen.WidthInMillimeters)
	mmH := uint32(screen.HeightInMillimeters)
	if curW > 0 && curH > 0 {
		mmW = uint32(int(mmW) * width / curW)
		mmH = uint32(int(mmH) * height / curH)
	}

	if err := randr.SetScreenSizeChecked(r.xu.Conn(), r.root,
		uint16(width), uint16(height), mmW, mmH).Check(); err != nil {
		return fmt.Errorf("failed to resize screen to %dx%d: %w", width, height, err)
	}
	screen.WidthInPixels = uint16(width)
	screen.HeightInPixels = uint16(height)
	screen.WidthInMillimeters = uint16(mmW)
	screen.HeightInMillimeters = uint16(mmH)
	return nil
}

func containsCrtc(crtcs []randr.Crtc, c randr.Crtc) bool {
	for _, x := range crtcs {
		if x == c {
			return true
		}
	}
	return false
}
