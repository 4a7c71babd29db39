package domain

//go:generate mockgen -destination mocks/mock_externalizer.go -package mocks github.com/nti-labs/webhooks/internal/domain Externalizer

import "context"

// DefaultDialectName is the always-available name under which the default
// Dialect is registered.
const DefaultDialectName = ""

// WebhookPayload is implemented by data that already claims to be a
// ready-to-serialize payload, satisfying the third step of the Dialect
// lookup priority in spec §4.2.
type WebhookPayload interface {
	IsWebhookPayload() bool
}

// Dialect converts a (data, event) pair into request bytes + HTTP method +
// headers. The default dialect serializes via the Externalizer boundary;
// custom dialects may override PrepareRequest to inject auth headers, HMAC
// signatures, etc.
type Dialect struct {
	Name                   string
	ExternalizerName       string
	ExternalizerPolicyName string
	ExternalizerFormat     string // default "json"
	ContentType            string // default "application/json"
	UserAgent              string
	HTTPMethod             string // default "POST"

	// PrepareRequest, when set, overrides header/body injection beyond the
	// defaults (HTTPMethod/To/ContentType/UserAgent/Body). It MUST read only
	// from sub and attempt's pre-captured fields — it runs outside any unit
	// of work and must never walk back to a persistent store.
	PrepareRequest func(ctx context.Context, sub *Subscription, attempt *ShipmentPair) (PreparedRequest, error)
}

// PreparedRequest is the final HTTP request shape a Dialect produces.
type PreparedRequest struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// NewDefaultDialect returns the always-registered default dialect: JSON
// body, POST method, no custom headers beyond Content-Type/User-Agent.
func NewDefaultDialect(userAgent string) *Dialect {
	return &Dialect{
		Name:               DefaultDialectName,
		ExternalizerFormat: "json",
		ContentType:        "application/json",
		UserAgent:          userAgent,
		HTTPMethod:         "POST",
	}
}

// DialectRegistry is a process-wide registry of Dialects looked up by name;
// the default dialect is always available under DefaultDialectName.
type DialectRegistry struct {
	dialects map[string]*Dialect
}

// NewDialectRegistry constructs a registry pre-seeded with the default.
func NewDialectRegistry(defaultDialect *Dialect) *DialectRegistry {
	r := &DialectRegistry{dialects: make(map[string]*Dialect)}
	r.Register(defaultDialect)
	return r
}

// Register adds or replaces a dialect under its Name.
func (r *DialectRegistry) Register(d *Dialect) {
	r.dialects[d.Name] = d
}

// Lookup finds a dialect by name, falling back to the default when name is
// empty. Returns ErrDialectNotFound when no match exists.
func (r *DialectRegistry) Lookup(forType, eventType, name string) (*Dialect, error) {
	if d, ok := r.dialects[name]; ok {
		return d, nil
	}
	if name == "" {
		return nil, &ErrDialectNotFound{ForType: forType, EventType: eventType}
	}
	return nil, &ErrDialectNotFound{ForType: forType, EventType: eventType, Name: name}
}

// Externalizer renders a domain payload into bytes in the requested format,
// the externalization boundary described in spec §6.
type Externalizer interface {
	ToExternalRepresentation(ctx context.Context, payload any, format, name, policyName string) ([]byte, error)
}
