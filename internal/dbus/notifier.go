package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name of the notification daemon.
	DBusBusName = "org.freedesktop.Notifications"

	notifyMethod = DBusInterface + ".Notify"
)

// CallTimeout bounds a single Notify round trip to the daemon.
const CallTimeout = 2 * time.Second

// AppName is sent as the application name of every notification.
const AppName = "displayctl"

// Urgency levels from the desktop notifications specification.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// ErrDisabled is returned by Notify on a disabled notifier.
var ErrDisabled = errors.New("notifications disabled")

// Request holds the arguments of a Notify call, in signature order
// (susssasa{sv}i).
type Request struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32
}

// NewRequest builds a Notify request. A zero timeout leaves expiry to the
// notification daemon.
func NewRequest(summary, body string, urgency byte, timeout time.Duration) Request {
	expire := int32(-1)
	if timeout > 0 {
		expire = int32(timeout.Milliseconds())
	}
	return Request{
		AppName: AppName,
		AppIcon: "video-display",
		Summary: summary,
		Body:    body,
		Actions: []string{},
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(urgency),
			"category":      dbus.MakeVariant("device"),
			"desktop-entry": dbus.MakeVariant(AppName),
		},
		ExpireTimeout: expire,
	}
}

// Args returns the request as D-Bus call arguments.
func (r Request) Args() []any {
	return []any{r.AppName, r.ReplacesID, r.AppIcon, r.Summary, r.Body, r.Actions, r.Hints, r.ExpireTimeout}
}

// Notifier sends notifications about display changes. Successive
// notifications replace the previous popup instead of stacking.
type Notifier struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	connect func() (*dbus.Conn, error)
	call    func(ctx context.Context, req Request) (uint32, error)
	logger  *slog.Logger

	callTimeout time.Duration

	enabled bool
	timeout time.Duration
	lastID  uint32
}

// NewNotifier creates a Notifier. The session bus is connected on first
// use.
func NewNotifier(enabled bool, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		connect:     func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
		logger:      logger,
		enabled:     enabled,
		timeout:     timeout,
		callTimeout: CallTimeout,
	}
	n.call = n.busNotify
	return n
}

// Enabled reports whether the notifier sends anything.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify shows a normal-urgency notification.
func (n *Notifier) Notify(summary, body string) error {
	return n.Send(NewRequest(summary, body, UrgencyNormal, n.timeout))
}

// Send delivers req, replacing the last notification this notifier showed.
func (n *Notifier) Send(req Request) error {
	if !n.enabled {
		return ErrDisabled
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if req.ReplacesID == 0 {
		req.ReplacesID = n.lastID
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.callTimeout)
	defer cancel()
	id, err := n.call(ctx, req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	n.lastID = id

	n.logger.Debug("notification sent", "id", id, "summary", req.Summary)
	return nil
}

// busNotify calls Notify on the session bus, connecting on first use.
// Callers hold n.mu.
func (n *Notifier) busNotify(ctx context.Context, req Request) (uint32, error) {
	if n.conn == nil {
		conn, err := n.connect()
		if err != nil {
			return 0, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		n.conn = conn
	}

	var id uint32
	obj := n.conn.Object(DBusBusName, DBusPath)
	if err := obj.CallWithContext(ctx, notifyMethod, 0, req.Args()...).Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Close releases the session bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
