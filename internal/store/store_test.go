package store

import (
	"context"
	"testing"

	"github.com/draftforge/draftforge/internal"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := New(Config{Logger: logger.NewTestLogger(), Memory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSetupAndSchemaRoundTrip(t *testing.T) {
	db := newTestStore(t)
	setup, err := db.CreateSetup("My World")
	require.NoError(t, err)
	require.NotEmpty(t, setup.ID)

	sc, err := db.CreateSchema(setup.ID, `{"$id": "ItemDescriptor", "type": "object"}`)
	require.NoError(t, err)
	assert.Equal(t, "ItemDescriptor", sc.Key())

	setups, err := db.ListSetups(context.Background())
	require.NoError(t, err)
	require.Len(t, setups, 1)
	assert.Equal(t, "My World", setups[0].Name)

	schemas, err := db.ListSchemas(context.Background(), setup.ID)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, sc.ID, schemas[0].ID)

	// other setups see nothing
	schemas, err = db.ListSchemas(context.Background(), "other")
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestCreateDraftSynthesizesDefaults(t *testing.T) {
	db := newTestStore(t)
	setup, err := db.CreateSetup("w")
	require.NoError(t, err)
	sc, err := db.CreateSchema(setup.ID, `{
		"$id": "ItemDescriptor",
		"type": "object",
		"properties": {
			"Rarity": {"enum": ["Rare", "Common"]},
			"RespawnTime": {"type": "string"},
			"Weight": {"type": "number"}
		}
	}`)
	require.NoError(t, err)

	draft, err := db.CreateDraft(context.Background(), setup.ID, internal.DraftInput{SchemaID: sc.ID})
	require.NoError(t, err)
	assert.Equal(t, "Common", gjson.Get(draft.Content, "Rarity").String())
	assert.Equal(t, "00:00:45", gjson.Get(draft.Content, "RespawnTime").String())
	assert.Equal(t, float64(0), gjson.Get(draft.Content, "Weight").Float())
}

func TestCreateDraftKeepsProvidedContent(t *testing.T) {
	db := newTestStore(t)
	setup, err := db.CreateSetup("w")
	require.NoError(t, err)
	draft, err := db.CreateDraft(context.Background(), setup.ID, internal.DraftInput{SchemaID: "sch-x", Content: `{"Id": "mine"}`})
	require.NoError(t, err)
	assert.Equal(t, `{"Id": "mine"}`, draft.Content)

	drafts, err := db.ListDrafts(context.Background(), setup.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)
}

func TestUpdateDraft(t *testing.T) {
	db := newTestStore(t)
	setup, err := db.CreateSetup("w")
	require.NoError(t, err)
	draft, err := db.CreateDraft(context.Background(), setup.ID, internal.DraftInput{SchemaID: "sch-x", Content: `{"v": 1}`})
	require.NoError(t, err)

	updated, err := db.UpdateDraft(context.Background(), draft.ID, `{"v": 2}`)
	require.NoError(t, err)
	assert.Equal(t, `{"v": 2}`, updated.Content)
	assert.Equal(t, draft.ID, updated.ID)

	drafts, err := db.ListDrafts(context.Background(), setup.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, `{"v": 2}`, drafts[0].Content)
}

func TestUpdateDraftNotFound(t *testing.T) {
	db := newTestStore(t)
	_, err := db.UpdateDraft(context.Background(), "missing", `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestImportSeed(t *testing.T) {
	db := newTestStore(t)
	err := db.Import(Seed{
		Setups:  []internal.Setup{{ID: "s1", Name: "Seeded"}},
		Schemas: []internal.Schema{{ID: "sch-1", SetupID: "s1", Content: `{"$id": "ItemDescriptor"}`}},
		Drafts: []internal.Draft{
			{SetupID: "s1", SchemaID: "sch-1", Content: `{"Id": "a"}`},
			{ID: "d-2", SetupID: "s1", SchemaID: "sch-1", Content: `{"Id": "b"}`},
		},
	})
	require.NoError(t, err)

	setups, err := db.ListSetups(context.Background())
	require.NoError(t, err)
	require.Len(t, setups, 1)

	drafts, err := db.ListDrafts(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	for _, draft := range drafts {
		assert.NotEmpty(t, draft.ID)
	}
}

func TestListCancelledContext(t *testing.T) {
	db := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.ListSetups(ctx)
	assert.Error(t, err)
}
