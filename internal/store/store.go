// Package store implements the offline persistence backend on an embedded
// key/value database. It satisfies the same client contract as the remote
// API so the editing core runs unchanged against either.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/google/uuid"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/buntdb"
)

// Key layout:
//   setup:<setupID>            -> Setup JSON
//   schema:<setupID>:<id>      -> Schema JSON
//   draft:<setupID>:<id>       -> Draft JSON

type Config struct {
	Logger logger.Logger
	Dir    string

	// Memory opens an in-memory database instead of a file, used by tests
	// and the demo mode of the server.
	Memory bool
}

type Store struct {
	logger logger.Logger
	db     *buntdb.DB
	once   sync.Once
}

var _ internal.Client = (*Store)(nil)

// FilenameFromDir returns the database filename for a data directory.
func FilenameFromDir(dir string) string {
	return filepath.Join(dir, "draftforge-data.db")
}

// New opens the store.
func New(config Config) (*Store, error) {
	var store Store

	filename := FilenameFromDir(config.Dir)
	if config.Memory {
		filename = ":memory:"
	}
	db, err := buntdb.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	var dbcfg buntdb.Config
	if err := db.ReadConfig(&dbcfg); err != nil {
		return nil, fmt.Errorf("failed to read db config: %w", err)
	}
	dbcfg.SyncPolicy = buntdb.EverySecond
	if err := db.SetConfig(dbcfg); err != nil {
		return nil, fmt.Errorf("failed to set db config: %w", err)
	}

	store.db = db
	store.logger = config.Logger.WithPrefix("[store]")

	return &store, nil
}

// Close will close the store and the underlying database.
func (s *Store) Close() error {
	s.logger.Debug("closing")
	s.once.Do(func() {
		s.db.Shrink()
		s.db.Close()
	})
	s.logger.Debug("closed")
	return nil
}

// ListSetups returns all setups in the store.
func (s *Store) ListSetups(ctx context.Context) ([]internal.Setup, error) {
	setups := make([]internal.Setup, 0)
	err := s.view(ctx, "setup:*", func(value string) error {
		var setup internal.Setup
		if err := json.Unmarshal([]byte(value), &setup); err != nil {
			return err
		}
		setups = append(setups, setup)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing setups: %w", err)
	}
	return setups, nil
}

// ListSchemas returns all schemas owned by a setup.
func (s *Store) ListSchemas(ctx context.Context, setupID string) ([]internal.Schema, error) {
	schemas := make([]internal.Schema, 0)
	err := s.view(ctx, "schema:"+setupID+":*", func(value string) error {
		var sc internal.Schema
		if err := json.Unmarshal([]byte(value), &sc); err != nil {
			return err
		}
		schemas = append(schemas, sc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing schemas: %w", err)
	}
	return schemas, nil
}

// ListDrafts returns all drafts owned by a setup.
func (s *Store) ListDrafts(ctx context.Context, setupID string) ([]internal.Draft, error) {
	drafts := make([]internal.Draft, 0)
	err := s.view(ctx, "draft:"+setupID+":*", func(value string) error {
		var draft internal.Draft
		if err := json.Unmarshal([]byte(value), &draft); err != nil {
			return err
		}
		drafts = append(drafts, draft)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing drafts: %w", err)
	}
	return drafts, nil
}

// CreateDraft creates a new draft in a setup. Empty content is filled in
// with the schema's synthesized default document.
func (s *Store) CreateDraft(ctx context.Context, setupID string, input internal.DraftInput) (*internal.Draft, error) {
	content := input.Content
	if content == "" || content == "{}" {
		schemas, err := s.ListSchemas(ctx, setupID)
		if err != nil {
			return nil, err
		}
		for i := range schemas {
			if schemas[i].ID == input.SchemaID {
				doc := schema.ParseDocument(schemas[i].Content)
				defaults := schema.SynthesizeDocument(doc)
				buf, err := json.Marshal(defaults)
				if err != nil {
					return nil, fmt.Errorf("error encoding default content: %w", err)
				}
				content = string(buf)
				break
			}
		}
		if content == "" {
			content = "{}"
		}
	}
	draft := internal.Draft{
		ID:       uuid.New().String(),
		SetupID:  setupID,
		SchemaID: input.SchemaID,
		Content:  content,
	}
	if err := s.put("draft:"+setupID+":"+draft.ID, draft); err != nil {
		return nil, fmt.Errorf("error creating draft: %w", err)
	}
	return &draft, nil
}

// UpdateDraft replaces the content of an existing draft, whichever setup it
// lives in.
func (s *Store) UpdateDraft(ctx context.Context, draftID string, content string) (*internal.Draft, error) {
	var draft *internal.Draft
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var key, value string
		iterr := tx.AscendKeys("draft:*", func(k, v string) bool {
			if strings.HasSuffix(k, ":"+draftID) {
				key, value = k, v
				return false
			}
			return true
		})
		if iterr != nil {
			return iterr
		}
		if key == "" {
			return internal.ErrNotFound
		}
		var d internal.Draft
		if err := json.Unmarshal([]byte(value), &d); err != nil {
			return err
		}
		d.Content = content
		buf, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(key, string(buf), nil); err != nil {
			return err
		}
		draft = &d
		return nil
	})
	if err != nil {
		if err == internal.ErrNotFound {
			return nil, fmt.Errorf("draft %s: %w", draftID, internal.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating draft: %w", err)
	}
	return draft, nil
}

// CreateSetup stores a new setup.
func (s *Store) CreateSetup(name string) (*internal.Setup, error) {
	setup := internal.Setup{ID: uuid.New().String(), Name: name}
	if err := s.put("setup:"+setup.ID, setup); err != nil {
		return nil, fmt.Errorf("error creating setup: %w", err)
	}
	return &setup, nil
}

// CreateSchema stores a new schema in a setup.
func (s *Store) CreateSchema(setupID string, content string) (*internal.Schema, error) {
	sc := internal.Schema{ID: uuid.New().String(), SetupID: setupID, Content: content}
	if err := s.put("schema:"+setupID+":"+sc.ID, sc); err != nil {
		return nil, fmt.Errorf("error creating schema: %w", err)
	}
	return &sc, nil
}

// Seed is the import payload for bootstrapping a store from a JSON file.
type Seed struct {
	Setups  []internal.Setup  `json:"setups"`
	Schemas []internal.Schema `json:"schemas"`
	Drafts  []internal.Draft  `json:"drafts"`
}

// Import loads a seed payload into the store. Records with empty ids get
// generated ones.
func (s *Store) Import(seed Seed) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		for i := range seed.Setups {
			setup := seed.Setups[i]
			if setup.ID == "" {
				setup.ID = uuid.New().String()
			}
			if err := putTx(tx, "setup:"+setup.ID, setup); err != nil {
				return err
			}
		}
		for i := range seed.Schemas {
			sc := seed.Schemas[i]
			if sc.ID == "" {
				sc.ID = uuid.New().String()
			}
			if err := putTx(tx, "schema:"+sc.SetupID+":"+sc.ID, sc); err != nil {
				return err
			}
		}
		for i := range seed.Drafts {
			draft := seed.Drafts[i]
			if draft.ID == "" {
				draft.ID = uuid.New().String()
			}
			if err := putTx(tx, "draft:"+draft.SetupID+":"+draft.ID, draft); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) view(ctx context.Context, pattern string, each func(value string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *buntdb.Tx) error {
		var eacherr error
		iterr := tx.AscendKeys(pattern, func(key, value string) bool {
			if eacherr = each(value); eacherr != nil {
				return false
			}
			return true
		})
		if eacherr != nil {
			return eacherr
		}
		return iterr
	})
}

func (s *Store) put(key string, value any) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return putTx(tx, key, value)
	})
}

func putTx(tx *buntdb.Tx, key string, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(key, string(buf), nil)
	return err
}
