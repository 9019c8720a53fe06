package tracking

// ConversionEventParams are the caller-supplied fields of a conversion.
type ConversionEventParams struct {
	LeadID   string
	Email    string
	Phone    string
	Value    float64
	Currency string
}

// Emitter pushes events to the dataLayer with the common envelope every
// event carries: tracking_version, session_id, page_url and device.
type Emitter struct {
	log         EventLog
	sessions    *SessionManager
	attribution *Attribution
	currency    string
}

// NewEmitter builds an emitter. A nil log discards events.
func NewEmitter(log EventLog, sessions *SessionManager, attribution *Attribution, currency string) *Emitter {
	if log == nil {
		log = nullEventLog{}
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Emitter{log: log, sessions: sessions, attribution: attribution, currency: currency}
}

func (e *Emitter) push(page Page, name string, params map[string]any) {
	ev := Event{
		"event":            name,
		"tracking_version": TrackingVersion,
		"session_id":       e.sessions.GetOrCreateSessionID(),
		"page_url":         page.Path(),
		"device":           DeviceType(page.ViewportWidth),
	}
	for k, v := range params {
		ev[k] = v
	}
	e.log.Push(ev)
}

func (e *Emitter) currencyOr(c string) string {
	if c != "" {
		return c
	}
	return e.currency
}

// PushPhoneClick records a phone click. No attribution is attached.
func (e *Emitter) PushPhoneClick(page Page, value float64, currency string) {
	e.push(page, EventPhoneClick, map[string]any{
		"value":    value,
		"currency": e.currencyOr(currency),
	})
}

// PushQuoteRequest records a quote request conversion.
func (e *Emitter) PushQuoteRequest(page Page, p ConversionEventParams) {
	e.pushConversion(page, EventQuoteRequest, p)
}

// PushCallbackRequest records a callback request conversion.
func (e *Emitter) PushCallbackRequest(page Page, p ConversionEventParams) {
	e.pushConversion(page, EventCallbackRequest, p)
}

// PushContactForm records a contact form conversion.
func (e *Emitter) PushContactForm(page Page, p ConversionEventParams) {
	e.pushConversion(page, EventContactForm, p)
}

// PushConversion dispatches on the conversion type.
func (e *Emitter) PushConversion(page Page, t ConversionType, p ConversionEventParams) {
	switch t {
	case ConversionQuoteRequest:
		e.PushQuoteRequest(page, p)
	case ConversionCallbackRequest:
		e.PushCallbackRequest(page, p)
	case ConversionContactForm:
		e.PushContactForm(page, p)
	}
}

func (e *Emitter) pushConversion(page Page, name string, p ConversionEventParams) {
	params := map[string]any{
		"lead_id":    p.LeadID,
		"user_email": NormalizeEmail(p.Email),
		"value":      p.Value,
		"currency":   e.currencyOr(p.Currency),
	}
	if p.Phone != "" {
		params["user_phone"] = NormalizePhone(p.Phone)
	}
	for k, v := range e.attribution.ForDataLayer() {
		params[k] = v
	}
	e.push(page, name, params)
}

func (e *Emitter) PushCalculatorStart(page Page) {
	e.push(page, EventCalculatorStart, nil)
}

func (e *Emitter) PushCalculatorStep(page Page, step int) {
	e.push(page, EventCalculatorStep, map[string]any{"step": step})
}

// PushCalculatorOption records a selected option; value is the option, not money.
func (e *Emitter) PushCalculatorOption(page Page, field, value string) {
	e.push(page, EventCalculatorOption, map[string]any{
		"field": field,
		"value": value,
	})
}

func (e *Emitter) PushFormAbandon(page Page, formID, lastField string) {
	e.push(page, EventFormAbandon, map[string]any{
		"form_id":    formID,
		"last_field": lastField,
	})
}
