// Package editor implements the entity editor controller: the headless state
// machine behind a form or table view over the drafts of one schema.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/vmihailenco/msgpack/v5"
)

// View selects the editing surface of a controller.
type View string

const (
	// ViewForm edits a single draft.
	ViewForm View = "form"

	// ViewTable edits all drafts of a schema, one row per draft.
	ViewTable View = "table"
)

// State is the lifecycle phase of a controller.
type State string

const (
	StateResolvingSchema State = "resolving-schema"
	StateLoadingData     State = "loading-data"
	StateReady           State = "ready"
	StateError           State = "error"
)

// Row is one draft surfaced in a table view.
type Row struct {
	ID      string
	Content map[string]any
}

// Controller drives one editing surface. All exported methods are safe for
// concurrent use.
type Controller struct {
	logger  logger.Logger
	client  internal.Client
	bus     internal.ChangeBus
	view    View
	setupID string
	// schemaKey is the logical $id the controller binds to; the storage id is
	// resolved from it during Load.
	schemaKey string
	draftID   string
	hints     *schema.UIHint

	mu          sync.Mutex
	state       State
	loadErr     error
	schemaID    string
	doc         *schema.Document
	columns     []schema.Column
	content     map[string]any
	snapshot    map[string]any
	snapshotSum uint64
	rows        []Row
	valid       bool
	unsubscribe func()
}

// Config configures a controller.
type Config struct {
	Logger    logger.Logger
	Client    internal.Client
	Bus       internal.ChangeBus
	View      View
	SetupID   string
	SchemaKey string

	// DraftID is required for form views and ignored for table views.
	DraftID string

	// Hints optionally reorders columns; typing is unaffected.
	Hints *schema.UIHint
}

// New creates a controller. A form view without a draft id is a programming
// error and fails immediately rather than surfacing a half-working editor.
func New(config Config) (*Controller, error) {
	if config.View == ViewForm && config.DraftID == "" {
		return nil, fmt.Errorf("form view for schema %s requires a draft id: %w", config.SchemaKey, internal.ErrContractViolation)
	}
	c := &Controller{
		logger:    config.Logger.WithPrefix("[editor]"),
		client:    config.Client,
		bus:       config.Bus,
		view:      config.View,
		setupID:   config.SetupID,
		schemaKey: config.SchemaKey,
		draftID:   config.DraftID,
		hints:     config.Hints,
		state:     StateResolvingSchema,
		valid:     true,
	}
	return c, nil
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the load error if the controller is in the error state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Load resolves the schema key to a stored schema and loads the view data.
// On success the controller transitions to ready; on failure to error with
// the cause retained.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.load(ctx); err != nil {
		c.mu.Lock()
		c.state = StateError
		c.loadErr = err
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Controller) load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateResolvingSchema
	c.loadErr = nil
	c.mu.Unlock()

	schemas, err := c.client.ListSchemas(ctx, c.setupID)
	if err != nil {
		return fmt.Errorf("error listing schemas: %w", err)
	}
	var found *internal.Schema
	for i := range schemas {
		if schemas[i].Key() == c.schemaKey {
			found = &schemas[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("schema %s: %w", c.schemaKey, internal.ErrNotFound)
	}
	doc := schema.ParseDocument(found.Content)
	columns := schema.OrderByHints(schema.FlattenToColumns(doc), c.hints)

	c.mu.Lock()
	c.schemaID = found.ID
	c.doc = doc
	c.columns = columns
	c.state = StateLoadingData
	c.mu.Unlock()

	switch c.view {
	case ViewForm:
		if err := c.loadForm(ctx); err != nil {
			return err
		}
	default:
		if err := c.loadRows(ctx); err != nil {
			return err
		}
		c.subscribe()
	}

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadForm(ctx context.Context) error {
	drafts, err := c.client.ListDrafts(ctx, c.setupID)
	if err != nil {
		return fmt.Errorf("error listing drafts: %w", err)
	}
	c.mu.Lock()
	schemaID := c.schemaID
	c.mu.Unlock()
	content := map[string]any{}
	for i := range drafts {
		if drafts[i].ID == c.draftID && drafts[i].SchemaID == schemaID {
			if err := json.Unmarshal([]byte(drafts[i].Content), &content); err != nil {
				c.logger.Warn("draft %s content does not parse, editing empty document: %s", c.draftID, err)
				content = map[string]any{}
			}
			break
		}
	}
	// a draft id that no longer resolves against this schema edits an empty
	// document rather than failing: the save path will surface the real problem
	c.mu.Lock()
	c.content = content
	c.mu.Unlock()
	return c.takeSnapshot()
}

func (c *Controller) loadRows(ctx context.Context) error {
	drafts, err := c.client.ListDrafts(ctx, c.setupID)
	if err != nil {
		return fmt.Errorf("error listing drafts: %w", err)
	}
	c.mu.Lock()
	schemaID := c.schemaID
	c.mu.Unlock()
	rows := make([]Row, 0)
	for i := range drafts {
		if drafts[i].SchemaID != schemaID {
			continue
		}
		content := map[string]any{}
		if err := json.Unmarshal([]byte(drafts[i].Content), &content); err != nil {
			c.logger.Warn("skipping draft %s with unparseable content: %s", drafts[i].ID, err)
			continue
		}
		rows = append(rows, Row{ID: drafts[i].ID, Content: content})
	}
	c.mu.Lock()
	c.rows = rows
	c.mu.Unlock()
	return nil
}

func (c *Controller) subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		return
	}
	c.unsubscribe = c.bus.Subscribe(func(event internal.ChangeEvent) {
		if event.SetupID != c.setupID || event.SchemaKey != c.schemaKey {
			return
		}
		if err := c.loadRows(context.Background()); err != nil {
			c.logger.Error("error reloading rows after change: %s", err)
		}
	})
}

// Columns returns the flattened, hint-ordered columns of the bound schema.
func (c *Controller) Columns() []schema.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columns
}

// Document returns the parsed schema document.
func (c *Controller) Document() *schema.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Rows returns the current table rows.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Content returns the form view's working document.
func (c *Controller) Content() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// SetField mutates one field of the form view's working document.
func (c *Controller) SetField(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.content == nil {
		c.content = map[string]any{}
	}
	c.content[name] = value
}

// SetValid records the outcome of external validation. An invalid document
// is held in the editor but refused by Save.
func (c *Controller) SetValid(valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = valid
}

// IsValid reports the last recorded validation outcome.
func (c *Controller) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Dirty reports whether the working document differs from the last saved
// snapshot. Comparison is by canonical fingerprint, not by edit history, so
// an edit that is manually undone reads as clean again.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum, err := fingerprint(c.content)
	if err != nil {
		return true
	}
	return sum != c.snapshotSum
}

// Save persists the form view's working document. Table views save per row
// through the autosave coordinator; a whole-view save is not a supported
// operation there. Save never panics and never leaks a raw error to the
// caller.
func (c *Controller) Save(ctx context.Context) internal.SaveResult {
	if c.view != ViewForm {
		return internal.SaveResult{OK: false, Err: internal.ErrUnsupported}
	}
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return internal.SaveResult{OK: false, Err: fmt.Errorf("document failed validation: %w", internal.ErrContractViolation)}
	}
	content := c.content
	c.mu.Unlock()

	payload, err := json.Marshal(content)
	if err != nil {
		return internal.SaveResult{OK: false, Err: fmt.Errorf("error encoding draft content: %w", err)}
	}
	if _, err := c.client.UpdateDraft(ctx, c.draftID, string(payload)); err != nil {
		return internal.SaveResult{OK: false, Err: fmt.Errorf("error updating draft %s: %w", c.draftID, err)}
	}
	if err := c.takeSnapshot(); err != nil {
		return internal.SaveResult{OK: false, Err: err}
	}
	c.bus.Emit(internal.ChangeEvent{SetupID: c.setupID, SchemaKey: c.schemaKey})
	return internal.SaveResult{OK: true}
}

// SaveRow persists one table row's content and announces the change. Like
// Save it never panics and never leaks a raw error past its boundary.
func (c *Controller) SaveRow(ctx context.Context, rowID string, content map[string]any) internal.SaveResult {
	payload, err := json.Marshal(content)
	if err != nil {
		return internal.SaveResult{OK: false, Err: fmt.Errorf("error encoding row content: %w", err)}
	}
	if _, err := c.client.UpdateDraft(ctx, rowID, string(payload)); err != nil {
		return internal.SaveResult{OK: false, Err: fmt.Errorf("error updating draft %s: %w", rowID, err)}
	}
	c.bus.Emit(internal.ChangeEvent{SetupID: c.setupID, SchemaKey: c.schemaKey})
	return internal.SaveResult{OK: true}
}

// RestoreRow puts a row's content back into the table after a failed save.
func (c *Controller) RestoreRow(rowID string, content map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.rows {
		if c.rows[i].ID == rowID {
			c.rows[i].Content = content
			return
		}
	}
}

// Reset discards unsaved edits and restores the last saved snapshot.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	restored, err := deepCopy(c.snapshot)
	if err != nil {
		c.logger.Error("error restoring snapshot: %s", err)
		return
	}
	c.content = restored
	c.valid = true
}

// Close unsubscribes the controller from change events.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// takeSnapshot deep-copies the working document as the new clean baseline.
func (c *Controller) takeSnapshot() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, err := deepCopy(c.content)
	if err != nil {
		return fmt.Errorf("error snapshotting draft content: %w", err)
	}
	sum, err := fingerprint(c.content)
	if err != nil {
		return fmt.Errorf("error fingerprinting draft content: %w", err)
	}
	c.snapshot = snapshot
	c.snapshotSum = sum
	return nil
}

// deepCopy clones a document through a msgpack round trip so snapshot and
// working copy never share nested maps or slices.
func deepCopy(content map[string]any) (map[string]any, error) {
	if content == nil {
		return map[string]any{}, nil
	}
	buf, err := msgpack.Marshal(content)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := msgpack.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fingerprint hashes the canonical JSON encoding of a document. json.Marshal
// sorts map keys, which makes the encoding stable across map iteration order.
func fingerprint(content map[string]any) (uint64, error) {
	if content == nil {
		content = map[string]any{}
	}
	buf, err := json.Marshal(content)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf), nil
}
