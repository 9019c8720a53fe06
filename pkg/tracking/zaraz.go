package tracking

import (
	"fmt"
	"log/slog"
)

// AnalyticsSink is an edge-side tracking client such as Cloudflare Zaraz.
type AnalyticsSink interface {
	Track(eventName string, properties map[string]any) error
	Set(key string, value any) error
}

// NullSink is the sink used when no tracking client is loaded.
type NullSink struct{}

func (NullSink) Track(string, map[string]any) error { return nil }
func (NullSink) Set(string, any) error              { return nil }

// MetaLeadParams feeds Meta's standard Lead event.
type MetaLeadParams struct {
	Email    string
	Phone    string
	Value    float64
	Currency string
	EventID  string
}

// Zaraz forwards Meta conversion events to an AnalyticsSink. It never lets a
// sink failure reach the caller.
type Zaraz struct {
	sink     AnalyticsSink
	currency string
	logger   *slog.Logger
}

// NewZaraz wraps sink. A nil sink makes every call a no-op.
func NewZaraz(sink AnalyticsSink, currency string, logger *slog.Logger) *Zaraz {
	if logger == nil {
		logger = discardLogger()
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Zaraz{sink: sink, currency: currency, logger: logger}
}

// Available reports whether a real sink is attached.
func (z *Zaraz) Available() bool {
	if z.sink == nil {
		return false
	}
	_, isNull := z.sink.(NullSink)
	return !isNull
}

// TrackMetaLead sends a Lead event; the lead id doubles as event_id for
// browser/server deduplication.
func (z *Zaraz) TrackMetaLead(p MetaLeadParams) bool {
	if !z.Available() {
		z.logger.Debug("Zaraz not available - skipping Meta track")
		return false
	}
	currency := p.Currency
	if currency == "" {
		currency = z.currency
	}
	props := map[string]any{
		"em":       NormalizeEmail(p.Email),
		"value":    p.Value,
		"currency": currency,
		"event_id": p.EventID,
	}
	if p.Phone != "" {
		props["ph"] = NormalizePhone(p.Phone)
	}
	return z.track("Lead", props)
}

// TrackMetaContact sends a Contact event for phone clicks.
func (z *Zaraz) TrackMetaContact(phone, eventID string) bool {
	if !z.Available() {
		return false
	}
	return z.track("Contact", map[string]any{
		"ph":       phone,
		"event_id": eventID,
	})
}

// SetUserData primes enhanced matching before a conversion happens.
func (z *Zaraz) SetUserData(email, phone string) {
	if !z.Available() {
		return
	}
	if email != "" {
		z.set("em", NormalizeEmail(email))
	}
	if phone != "" {
		z.set("ph", NormalizePhone(phone))
	}
}

func (z *Zaraz) track(name string, props map[string]any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			z.logger.Error("Zaraz track error", "event", name, "error", fmt.Sprint(r))
			ok = false
		}
	}()
	if err := z.sink.Track(name, props); err != nil {
		z.logger.Error("Zaraz track error", "event", name, "error", err.Error())
		return false
	}
	return true
}

func (z *Zaraz) set(key string, value any) {
	defer func() {
		if r := recover(); r != nil {
			z.logger.Error("Zaraz set error", "key", key, "error", fmt.Sprint(r))
		}
	}()
	if err := z.sink.Set(key, value); err != nil {
		z.logger.Error("Zaraz set error", "key", key, "error", err.Error())
	}
}
