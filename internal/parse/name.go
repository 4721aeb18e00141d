package parse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// QRPrefix starts the payload printed on occupancy tickets: DORMOCC:<code>.
const QRPrefix = "DORMOCC:"

var (
	separatorRe = regexp.MustCompile(`[\s#/_.-]+`)
	floorRe     = regexp.MustCompile(`(?i)^(?:L|LT)?(\d+)(?:F)?$`)
)

// BedLabel is the structured form of a printed bed label such as "A-3-12-B":
// building A, floor 3, room 12, bed B.
type BedLabel struct {
	Building string
	Floor    int
	Room     string
	Bed      string
}

// String returns the canonical label, which is also the bed's code.
func (l BedLabel) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", l.Building, l.Floor, l.Room, l.Bed)
}

// ParseBedLabel extracts building, floor, room and bed from a hand-typed or scanned label.
// Separators may be dashes, spaces, slashes or '#', case is ignored, and the floor may
// carry an "F" suffix or an "L"/"LT" prefix: "a 3F 12 b" and "A#LT3/12-B" both parse.
func ParseBedLabel(raw string) (BedLabel, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(separatorRe.ReplaceAllString(s, " "), " ")
	parts := strings.Fields(s)
	if len(parts) != 4 {
		return BedLabel{}, fmt.Errorf("unable to parse bed label %q: expected building-floor-room-bed", raw)
	}

	m := floorRe.FindStringSubmatch(parts[1])
	if m == nil {
		return BedLabel{}, fmt.Errorf("unable to parse floor from bed label %q", raw)
	}
	floor, err := strconv.Atoi(m[1])
	if err != nil || floor <= 0 {
		return BedLabel{}, fmt.Errorf("unable to parse floor from bed label %q", raw)
	}

	room := strings.TrimLeft(parts[2], "0")
	if room == "" {
		room = "0"
	}
	return BedLabel{Building: parts[0], Floor: floor, Room: room, Bed: parts[3]}, nil
}

// ParseOccupancyQR returns the occupancy code carried by a scanned ticket. It accepts the
// DORMOCC: payload, a URL with a code query parameter, or the bare code.
func ParseOccupancyQR(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= len(QRPrefix) && strings.EqualFold(s[:len(QRPrefix)], QRPrefix) {
		s = s[len(QRPrefix):]
	} else if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		s = u.Query().Get("code")
	}

	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("unable to parse occupancy code from %q", raw)
	}
	return id.String(), nil
}
