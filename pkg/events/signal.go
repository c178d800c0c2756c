package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Name is a storefront lifecycle signal name.
type Name string

// Lifecycle signals consumed by the analytics bridge.
const (
	PageReady                 Name = "PAGE_READY"
	PaginationPageChange      Name = "RECORD_PAGINATION_PAGE_CHANGE"
	UserCreationSuccessful    Name = "USER_CREATION_SUCCESSFUL"
	UserPasswordUpdateSuccess Name = "USER_PROFILE_PASSWORD_UPDATE_SUCCESSFUL"
	UserResetPasswordSuccess  Name = "USER_RESET_PASSWORD_SUCCESS"
	OrderSubmissionSuccess    Name = "ORDER_SUBMISSION_SUCCESS"
	OrderCreate               Name = "ORDER_CREATE"
)

// Names lists every signal the bridge knows about, in registration order.
var Names = []Name{
	PageReady,
	PaginationPageChange,
	UserCreationSuccessful,
	UserPasswordUpdateSuccess,
	UserResetPasswordSuccess,
	OrderSubmissionSuccess,
	OrderCreate,
}

// Known reports whether n is one of the lifecycle signals in Names.
func Known(n Name) bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Envelope is a lifecycle signal as it travels over a transport.
// Ensure all fields are exported for JSON serialization.
type Envelope struct {
	ID        string          `json:"id"`                // Unique identifier for the emitted signal.
	Name      Name            `json:"name"`              // Signal name.
	Payload   json.RawMessage `json:"payload,omitempty"` // Signal-specific payload, decoded by the handler.
	Context   *HostContext    `json:"context,omitempty"` // Host page state at emission time.
	EmittedAt time.Time       `json:"emittedAt"`         // Timestamp when the host emitted the signal.
}

// HostContext carries the parts of the host page the handlers read.
// Any part left nil means "unchanged since the previous signal".
type HostContext struct {
	Location *Location `json:"location,omitempty"`
	Cart     *CartView `json:"cart,omitempty"`
	Site     *Site     `json:"site,omitempty"`
}

// Location is the host page's current route and document title.
type Location struct {
	Path  string `json:"path"`  // Hash route, e.g. "/#!/category/shirts".
	Title string `json:"title"` // Document title.
}

// Site describes the storefront site the signal came from.
type Site struct {
	Name string `json:"name"`
}

// NewEnvelope builds an envelope with a fresh id and the payload marshalled
// to JSON. A nil payload leaves Payload empty.
func NewEnvelope(name Name, payload any) (Envelope, error) {
	env := Envelope{
		ID:        uuid.NewString(),
		Name:      name,
		EmittedAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", name, err)
		}
		env.Payload = data
	}
	return env, nil
}

// Decode unmarshals a wire envelope. fallback names the signal when the
// envelope itself does not, e.g. when the name is carried by the subject.
// A missing id or emission time is filled in.
func Decode(data []byte, fallback Name) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Name == "" {
		env.Name = fallback
	}
	if env.Name == "" {
		return Envelope{}, fmt.Errorf("decode envelope: signal name missing")
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.EmittedAt.IsZero() {
		env.EmittedAt = time.Now().UTC()
	}
	return env, nil
}

// PageReadyPayload is the payload of PAGE_READY.
type PageReadyPayload struct {
	Parameters *string `json:"parameters,omitempty"` // Raw query parameters of the page, if any.
}

// UserPayload is the payload of the customer lifecycle signals. The bridge
// does not read it; it is kept for logging.
type UserPayload map[string]any
