// Package descriptor resolves "descriptor id" style foreign-key references
// between drafts. The relationship is encoded purely by naming convention: a
// property named FooDescriptorId references drafts whose schema key is Foo
// or FooDescriptor.
package descriptor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Option is one selectable target draft for a descriptor-typed field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Resolver turns (setup, base schema key, property name) into a deduplicated,
// sorted option list, backed by the shared OptionCache.
type Resolver struct {
	logger   logger.Logger
	client   internal.Client
	cache    *OptionCache
	collator *collate.Collator
}

// NewResolver creates a resolver on top of a client and an option cache. The
// cache is injected so independent resolvers (and tests) can be isolated.
func NewResolver(logger logger.Logger, client internal.Client, cache *OptionCache) *Resolver {
	return &Resolver{
		logger:   logger.WithPrefix("[descriptor]"),
		client:   client,
		cache:    cache,
		collator: collate.New(language.Und),
	}
}

// CandidateKeys generates the target schema key candidates for a base schema
// key and an optional referencing property name, in the order they must be
// tried:
//
//  1. a base key ending in "Spawn" with that suffix swapped for "Descriptor"
//  2. the lookup key (property name if given, else base key) with a trailing
//     "Id" stripped
//  3. the lookup key unmodified, as the final fallback
func CandidateKeys(baseSchemaKey string, propertyName string) []string {
	candidates := make([]string, 0, 3)
	if strings.HasSuffix(baseSchemaKey, "Spawn") {
		candidates = append(candidates, strings.TrimSuffix(baseSchemaKey, "Spawn")+"Descriptor")
	}
	lookup := propertyName
	if lookup == "" {
		lookup = baseSchemaKey
	}
	if len(lookup) > 2 && strings.EqualFold(lookup[len(lookup)-2:], "Id") {
		candidates = append(candidates, lookup[:len(lookup)-2])
	}
	candidates = append(candidates, lookup)
	return util.Dedupe(candidates)
}

// Resolve returns the selectable options for a descriptor-typed field. A key
// that resolves to no target schema yields an empty list, not an error:
// "no options" is a valid, displayable state. A cancelled context also yields
// an empty list and leaves the cache untouched for this caller.
func (r *Resolver) Resolve(ctx context.Context, setupID string, baseSchemaKey string, propertyName string) ([]Option, error) {
	if ctx.Err() != nil {
		return []Option{}, nil
	}
	key := Key(setupID, baseSchemaKey, propertyName)
	return r.cache.GetOrFetch(ctx, key, func(fctx context.Context) ([]Option, error) {
		return r.fetch(fctx, setupID, baseSchemaKey, propertyName)
	})
}

// ResolveBatch resolves options for each property sequentially, preserving
// input order in the result map. A single cancellation aborts the batch
// before its next item starts.
func (r *Resolver) ResolveBatch(ctx context.Context, setupID string, baseSchemaKey string, properties []string) (map[string][]Option, error) {
	result := make(map[string][]Option, len(properties))
	for _, property := range properties {
		if ctx.Err() != nil {
			return result, nil
		}
		options, err := r.Resolve(ctx, setupID, baseSchemaKey, property)
		if err != nil {
			return nil, fmt.Errorf("error resolving options for property %s: %w", property, err)
		}
		result[property] = options
	}
	return result, nil
}

func (r *Resolver) fetch(ctx context.Context, setupID string, baseSchemaKey string, propertyName string) ([]Option, error) {
	targetSchemaID, err := r.resolveSchemaID(ctx, setupID, CandidateKeys(baseSchemaKey, propertyName))
	if err != nil {
		return nil, err
	}
	if targetSchemaID == "" {
		r.logger.Trace("no target schema for base: %s property: %s", baseSchemaKey, propertyName)
		return []Option{}, nil
	}
	drafts, err := r.client.ListDrafts(ctx, setupID)
	if err != nil {
		return nil, fmt.Errorf("error listing drafts: %w", err)
	}
	return r.buildOptions(drafts, targetSchemaID), nil
}

// resolveSchemaID tries each candidate key in order against the setup's
// schema list and returns the storage id of the first schema whose $id
// matches. Schema lists are not assumed sorted; within one candidate the
// first match in listing order wins.
func (r *Resolver) resolveSchemaID(ctx context.Context, setupID string, candidates []string) (string, error) {
	schemas, err := r.client.ListSchemas(ctx, setupID)
	if err != nil {
		return "", fmt.Errorf("error listing schemas: %w", err)
	}
	for _, candidate := range candidates {
		for i := range schemas {
			if schemas[i].Key() == candidate {
				return schemas[i].ID, nil
			}
		}
	}
	return "", nil
}

// buildOptions maps matching drafts to options, deduplicates by value (first
// occurrence wins) and sorts ascending by label with a locale-aware compare.
func (r *Resolver) buildOptions(drafts []internal.Draft, targetSchemaID string) []Option {
	options := make([]Option, 0)
	seen := make(map[string]struct{})
	for i := range drafts {
		if drafts[i].SchemaID != targetSchemaID {
			continue
		}
		logicalID, present := drafts[i].LogicalID()
		value := drafts[i].ID
		if present && logicalID != "" {
			value = logicalID
		}
		label := value
		if present {
			label = logicalID
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, Option{Label: label, Value: value})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return r.collator.CompareString(options[i].Label, options[j].Label) < 0
	})
	return options
}
