package backend

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jmylchreest/displayctl/internal/model"
)

// edidNamespace scopes display UUIDs derived from EDID data.
var edidNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("displayctl.edid"))

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// ErrInvalidEDID is returned for data that is not an EDID base block.
var ErrInvalidEDID = errors.New("invalid EDID")

// EDID holds the identifying fields of an EDID base block.
type EDID struct {
	Manufacturer string
	Product      uint16
	Serial       uint32
	SerialText   string
	Name         string
	Week         int
	Year         int
}

// ParseEDID parses the 128-byte base block at the start of data.
func ParseEDID(data []byte) (EDID, error) {
	if len(data) < 128 {
		return EDID{}, fmt.Errorf("%w: %d bytes", ErrInvalidEDID, len(data))
	}
	if !bytes.Equal(data[:8], edidHeader) {
		return EDID{}, fmt.Errorf("%w: bad header", ErrInvalidEDID)
	}

	var e EDID

	// Three 5-bit letters, 'A' = 1, big-endian.
	mfg := binary.BigEndian.Uint16(data[8:10])
	letters := []byte{
		byte(mfg>>10&0x1f) + 'A' - 1,
		byte(mfg>>5&0x1f) + 'A' - 1,
		byte(mfg&0x1f) + 'A' - 1,
	}
	e.Manufacturer = string(letters)
	e.Product = binary.LittleEndian.Uint16(data[10:12])
	e.Serial = binary.LittleEndian.Uint32(data[12:16])
	e.Week = int(data[16])
	e.Year = int(data[17]) + 1990

	// Display descriptors live in four 18-byte slots.
	for off := 54; off+18 <= 126; off += 18 {
		desc := data[off : off+18]
		if desc[0] != 0 || desc[1] != 0 {
			continue // detailed timing descriptor
		}
		switch desc[3] {
		case 0xff:
			e.SerialText = descriptorText(desc[5:18])
		case 0xfc:
			e.Name = descriptorText(desc[5:18])
		}
	}

	return e, nil
}

func descriptorText(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// UUID returns a deterministic UUID for the physical display. Two panels of
// the same model only differ when their EDID carries a serial.
func (e EDID) UUID() string {
	key := fmt.Sprintf("%s:%04x:%08x:%s", e.Manufacturer, e.Product, e.Serial, e.SerialText)
	return strings.ToUpper(uuid.NewSHA1(edidNamespace, []byte(key)).String())
}

// ConnectorUUID qualifies UUID with the output's connector name. It tells
// apart identical monitors whose EDIDs carry no serial.
func (e EDID) ConnectorUUID(connector string) string {
	key := fmt.Sprintf("%s:%04x:%08x:%s@%s", e.Manufacturer, e.Product, e.Serial, e.SerialText, connector)
	return strings.ToUpper(uuid.NewSHA1(edidNamespace, []byte(key)).String())
}

// edidOutput is a connected output together with its parsed EDID.
type edidOutput struct {
	handle    model.Handle
	connector string
	edid      EDID
	enabled   bool
}

// outputUUID returns the identifier recorded for h: the EDID UUID, or the
// connector-qualified UUID when another connected output shares it.
func outputUUID(outputs []edidOutput, h model.Handle) (string, bool) {
	for _, o := range outputs {
		if o.handle != h {
			continue
		}
		base := o.edid.UUID()
		for _, other := range outputs {
			if other.handle != h && other.edid.UUID() == base {
				return o.edid.ConnectorUUID(o.connector), true
			}
		}
		return base, true
	}
	return "", false
}

// matchUUID finds the output recorded as id. A connector-qualified match
// wins. Otherwise, among outputs sharing the EDID UUID, a disabled one is
// preferred, since only a disabled display can be the one to restore.
func matchUUID(outputs []edidOutput, id string) (model.Handle, bool) {
	for _, o := range outputs {
		if strings.EqualFold(o.edid.ConnectorUUID(o.connector), id) {
			return o.handle, true
		}
	}

	var first *edidOutput
	for i := range outputs {
		o := &outputs[i]
		if !strings.EqualFold(o.edid.UUID(), id) {
			continue
		}
		if !o.enabled {
			return o.handle, true
		}
		if first == nil {
			first = o
		}
	}
	if first == nil {
		return 0, false
	}
	return first.handle, true
}
