package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemSchema = `{
	"$id": "https://draftforge.dev/ItemDescriptor.json",
	"type": "object",
	"properties": {
		"Id": {"type": "string"},
		"Weight": {"type": "number", "minimum": 0},
		"Rarity": {"enum": ["Common", "Rare", "Epic"]}
	},
	"required": ["Id"]
}`

func TestValidDocument(t *testing.T) {
	validator, err := New(itemSchema)
	require.NoError(t, err)
	assert.NoError(t, validator.ValidateJSON(`{"Id": "item_a", "Weight": 2, "Rarity": "Rare"}`))
	assert.True(t, validator.IsValid(map[string]any{"Id": "item_a"}))
}

func TestInvalidDocument(t *testing.T) {
	validator, err := New(itemSchema)
	require.NoError(t, err)
	assert.Error(t, validator.ValidateJSON(`{"Weight": -1}`))
	assert.Error(t, validator.ValidateJSON(`{"Id": "x", "Rarity": "Legendary"}`))
	assert.False(t, validator.IsValid(map[string]any{}))
}

func TestMalformedDocument(t *testing.T) {
	validator, err := New(itemSchema)
	require.NoError(t, err)
	assert.Error(t, validator.ValidateJSON(`not json`))
}

func TestMalformedSchema(t *testing.T) {
	_, err := New(`{"type": ["not", 5]}`)
	assert.Error(t, err)
}
