package internal

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound indicates a schema key or draft id does not resolve within a setup.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported indicates an operation that is intentionally not available for the view kind.
	ErrUnsupported = errors.New("operation not supported")

	// ErrContractViolation indicates the caller broke a construction contract, such as a form view without a draft id.
	ErrContractViolation = errors.New("contract violation")

	// ErrUnauthorized indicates the session is missing, expired or was rejected by the backend.
	ErrUnauthorized = errors.New("unauthorized")
)

// Setup is a tenant/workspace container. Drafts and Schemas are scoped exclusively to one Setup.
type Setup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Schema is a stored JSON Schema document. The logical key lives inside the
// content as the $id field and is distinct from the storage id.
type Schema struct {
	ID      string `json:"id"`
	SetupID string `json:"setupId"`
	Content string `json:"content"`
}

// Key returns the logical schema key ($id) from the schema content or an
// empty string if the content doesn't parse.
func (s *Schema) Key() string {
	return gjson.Get(s.Content, "$id").String()
}

// Draft is a JSON document instance typed by a schema id.
type Draft struct {
	ID       string `json:"id"`
	SetupID  string `json:"setupId"`
	SchemaID string `json:"schemaId"`
	Content  string `json:"content"`
}

// LogicalID returns the content Id field and whether it was present.
// Parse failures on the content string are treated as absent.
func (d *Draft) LogicalID() (string, bool) {
	res := gjson.Get(d.Content, "Id")
	return res.String(), res.Exists()
}

// DraftInput is the payload for creating a new draft.
type DraftInput struct {
	SchemaID string `json:"schemaId"`
	Content  string `json:"content"`
}

// Client is the contract the core consumes from the persistence backend,
// either the remote REST API or the offline store.
type Client interface {

	// ListSetups returns all setups visible to the session.
	ListSetups(ctx context.Context) ([]Setup, error)

	// ListSchemas returns all schemas owned by a setup.
	ListSchemas(ctx context.Context, setupID string) ([]Schema, error)

	// ListDrafts returns all drafts owned by a setup.
	ListDrafts(ctx context.Context, setupID string) ([]Draft, error)

	// CreateDraft creates a new draft in a setup and returns the stored draft.
	CreateDraft(ctx context.Context, setupID string, input DraftInput) (*Draft, error)

	// UpdateDraft replaces the content of an existing draft.
	UpdateDraft(ctx context.Context, draftID string, content string) (*Draft, error)
}

// ChangeEvent announces that the drafts of a schema within a setup changed.
type ChangeEvent struct {
	SetupID   string `json:"setupId"`
	SchemaKey string `json:"schemaKey"`
}

// ChangeBus is an in-process, fire-and-forget change notification bus.
// A misbehaving listener must not break delivery to remaining listeners.
type ChangeBus interface {

	// Emit delivers the event to all current subscribers.
	Emit(event ChangeEvent)

	// Subscribe registers a listener and returns an unsubscribe function.
	Subscribe(listener func(ChangeEvent)) func()
}

// Severity of a user-facing transient notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a user-visible transient message.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier is the sink for user-facing transient notifications.
type Notifier interface {
	Notify(notification Notification)
}

// SaveResult is the structured outcome of a persistence operation. Public
// save operations never panic or return raw errors past their boundary.
type SaveResult struct {
	OK  bool  `json:"ok"`
	Err error `json:"error,omitempty"`
}
