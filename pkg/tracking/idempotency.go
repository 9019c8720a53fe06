package tracking

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// GenerateLeadID returns LD-YYYY-MM-DD-xxxxx. The suffix is five random
// base36 characters; uniqueness is advisory only.
func GenerateLeadID(now time.Time) string {
	return "LD-" + now.UTC().Format("2006-01-02") + "-" + randomBase36(5)
}

// GenerateIdempotencyKey hashes email, event type and UTC date. The same
// visitor submitting the same form type twice in one day gets the same key,
// which is what lets the lead API collapse resubmissions.
func GenerateIdempotencyKey(email, eventType string, now time.Time) string {
	input := NormalizeEmail(email) + ":" + eventType + ":" + now.UTC().Format("2006-01-02")
	return djb2(input)
}

// djb2 is the xor variant over UTF-16 code units, rendered as unsigned hex,
// so keys match the ones minted by the browser script.
func djb2(s string) string {
	var hash int32 = 5381
	for _, unit := range utf16Units(s) {
		hash = (hash * 33) ^ int32(unit)
	}
	return strconv.FormatUint(uint64(uint32(hash)), 16)
}

func utf16Units(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		units = append(units, uint16(r))
	}
	return units
}

// PhoneClickDeduper lets one phone_click through per session for the life of
// the page. It is not persisted; a reload starts fresh.
type PhoneClickDeduper struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

// NewPhoneClickDeduper returns an empty deduper.
func NewPhoneClickDeduper() *PhoneClickDeduper {
	return &PhoneClickDeduper{fired: make(map[string]struct{})}
}

// ShouldFire is true the first time sessionID is seen and false afterwards.
func (d *PhoneClickDeduper) ShouldFire(sessionID string) bool {
	key := "phone:" + sessionID

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, seen := d.fired[key]; seen {
		return false
	}
	d.fired[key] = struct{}{}
	return true
}

// Reset forgets every session.
func (d *PhoneClickDeduper) Reset() {
	d.mu.Lock()
	d.fired = make(map[string]struct{})
	d.mu.Unlock()
}

// NormalizeEmail trims and lowercases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits and a leading plus.
func NormalizePhone(phone string) string {
	var b strings.Builder
	if strings.HasPrefix(phone, "+") {
		b.WriteByte('+')
	}
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DeviceType buckets a viewport width.
func DeviceType(width int) string {
	switch {
	case width <= 0:
		return "desktop"
	case width < BreakpointMobile:
		return "mobile"
	case width < BreakpointTablet:
		return "tablet"
	}
	return "desktop"
}
