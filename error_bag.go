package authclient

import (
	"encoding/json"
	"net/http"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// FailureKind is the semantic class of a failed request.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureTransport covers failures without an HTTP status: DNS, timeouts,
	// connection resets.
	FailureTransport
	// FailureValidation is a 422 with field-level messages.
	FailureValidation
	// FailureCSRF is a 419 anti-forgery desync.
	FailureCSRF
	// FailureUnauthenticated is a 401 expired/absent session.
	FailureUnauthenticated
)

// Outcome is the structured result of classifying one failure. The 401 side
// effect is surfaced as InvalidateSession rather than performed here, so the
// caller owns the cross-component write.
type Outcome struct {
	Kind              FailureKind
	Message           string
	FieldErrors       map[string][]string
	InvalidateSession bool
}

// validationBody is the backend's 422 payload shape.
type validationBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// ErrorBag classifies failed requests into a message plus field-level
// errors, and retains them for form consumers. One bag per client instance;
// components sharing a client intentionally share its bag.
type ErrorBag struct {
	messages MessageConfig
	logger   Logger

	mu      sync.RWMutex
	message string
	fields  map[string][]string
}

type ErrorBagOption func(*ErrorBag)

// WithErrorBagLogger overrides the bag logger.
func WithErrorBagLogger(logger Logger) ErrorBagOption {
	return func(b *ErrorBag) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewErrorBag(cfg Config, opts ...ErrorBagOption) *ErrorBag {
	cfg = configDefault(cfg)

	bag := &ErrorBag{
		messages: cfg.Messages,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(bag)
		}
	}

	return bag
}

// Handle classifies err, records message and field errors, and returns the
// structured outcome. A nil err is a no-op so call sites that don't always
// carry an error can call it unconditionally. Handle never fails: an
// unparseable payload degrades to the configured default message.
func (b *ErrorBag) Handle(err error) Outcome {
	if err == nil {
		return Outcome{}
	}

	outcome := b.classify(err)

	b.mu.Lock()
	b.message = outcome.Message
	b.fields = outcome.FieldErrors
	b.mu.Unlock()

	return outcome
}

func (b *ErrorBag) classify(err error) Outcome {
	var re *ResponseError
	if !goerrors.As(err, &re) {
		return Outcome{
			Kind:    FailureTransport,
			Message: b.messageOrDefault(err.Error()),
		}
	}

	switch re.StatusCode {
	case http.StatusUnprocessableEntity:
		body := validationBody{}
		if jerr := json.Unmarshal(re.Body, &body); jerr != nil {
			b.logger.Debug("validation payload did not parse: %v", jerr)
		}

		outcome := Outcome{
			Kind:    FailureValidation,
			Message: b.messageOrDefault(body.Message),
		}

		if len(body.Errors) > 0 {
			outcome.FieldErrors = body.Errors
		}

		return outcome

	case StatusPageExpired:
		return Outcome{
			Kind:    FailureCSRF,
			Message: b.messages.CSRF,
		}

	case http.StatusUnauthorized:
		return Outcome{
			Kind:              FailureUnauthenticated,
			Message:           b.messages.Unauthenticated,
			InvalidateSession: true,
		}

	default:
		return Outcome{
			Kind:    FailureTransport,
			Message: b.messageOrDefault(re.Error()),
		}
	}
}

func (b *ErrorBag) messageOrDefault(message string) string {
	if message == "" {
		return b.messages.Default
	}
	return message
}

// Reset clears both the message and the field errors. The client calls it
// before each request; consumers may call it on demand (e.g. when a form
// unmounts). Idempotent.
func (b *ErrorBag) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = ""
	b.fields = nil
}

// Any reports whether the bag currently holds a classified failure.
func (b *ErrorBag) Any() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.message != "" || len(b.fields) > 0
}

// Message returns the classified top-level message, empty when clear.
func (b *ErrorBag) Message() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.message
}

// Has reports whether field carries at least one validation message.
func (b *ErrorBag) Has(field string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.fields[field]) > 0
}

// Get returns the first message for field, or def when absent. Absence is
// not exceptional; the zero default is the empty string.
func (b *ErrorBag) Get(field string, def ...string) string {
	fallback := ""
	if len(def) > 0 {
		fallback = def[0]
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if msgs := b.fields[field]; len(msgs) > 0 {
		return msgs[0]
	}

	return fallback
}

// All returns every message recorded for field.
func (b *ErrorBag) All(field string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs := b.fields[field]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}
