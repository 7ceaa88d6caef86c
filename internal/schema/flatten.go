package schema

import (
	"sort"
	"strings"
)

// ColumnType is the editable primitive a column renders as.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeEnum    ColumnType = "enum"
)

// Column describes one editable field/column derived from a schema property.
// A path longer than one segment indicates a flattened nested-object property.
type Column struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Path       []string   `json:"path"`
	Type       ColumnType `json:"type"`
	EnumValues []any      `json:"enumValues,omitempty"`
}

// UIHint is a node of the auxiliary layout tree. Only leaf scopes referencing
// top-level properties matter here; the tree is consumed for ordering, never
// for typing.
type UIHint struct {
	Type     string   `json:"type,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	Label    string   `json:"label,omitempty"`
	Elements []UIHint `json:"elements,omitempty"`
}

// FlattenToColumns flattens an object schema into an ordered list of typed
// columns. Nested object properties are flattened exactly one level deep with
// a two-segment path. Non-object schemas yield an empty list, not an error.
func FlattenToColumns(doc *Document) []Column {
	columns := make([]Column, 0)
	if doc == nil || doc.Root == nil || doc.Root.Kind != KindObject {
		return columns
	}
	for _, prop := range doc.Root.Properties {
		effective := prop.Schema
		if effective.Kind == KindRef {
			resolved := doc.Resolve(effective)
			if resolved == nil || resolved.Kind == KindRef {
				// unresolved or multi-hop ref degrades to a generic string field
				columns = append(columns, newColumn([]string{prop.Name}, effective.Title, TypeString, nil))
				continue
			}
			effective = resolved
		}
		if effective.Kind == KindObject && len(effective.Properties) > 0 {
			for _, inner := range effective.Properties {
				typ, enums := inferType(inner.Schema)
				columns = append(columns, newColumn([]string{prop.Name, inner.Name}, inner.Schema.Title, typ, enums))
			}
			continue
		}
		typ, enums := inferType(effective)
		columns = append(columns, newColumn([]string{prop.Name}, effective.Title, typ, enums))
	}
	return columns
}

// OrderByHints reorders columns so that top-level properties referenced by
// the hint tree come first, in first-seen hint order, followed by the
// remaining columns in their original schema order. The sort is stable.
func OrderByHints(columns []Column, hints *UIHint) []Column {
	if hints == nil {
		return append([]Column(nil), columns...)
	}
	rank := make(map[string]int)
	collectScopes(hints, rank)
	if len(rank) == 0 {
		return append([]Column(nil), columns...)
	}
	ordered := make([]Column, 0, len(columns))
	rest := make([]Column, 0, len(columns))
	for _, col := range columns {
		if _, ok := rank[col.Path[0]]; ok {
			ordered = append(ordered, col)
		} else {
			rest = append(rest, col)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Path[0]] < rank[ordered[j].Path[0]]
	})
	return append(ordered, rest...)
}

func newColumn(path []string, title string, typ ColumnType, enums []any) Column {
	if title == "" {
		title = path[len(path)-1]
	}
	return Column{
		Key:        strings.Join(path, "."),
		Title:      title,
		Path:       path,
		Type:       typ,
		EnumValues: enums,
	}
}

func inferType(v *Variant) (ColumnType, []any) {
	if v == nil {
		return TypeString, nil
	}
	switch v.Kind {
	case KindEnum:
		return TypeEnum, v.Enum
	case KindPrimitive:
		switch v.Primitive {
		case "number", "integer":
			return TypeNumber, nil
		case "boolean":
			return TypeBoolean, nil
		}
	}
	return TypeString, nil
}

// collectScopes walks the hint tree depth-first recording the first-seen
// order of referenced top-level property names.
func collectScopes(hint *UIHint, rank map[string]int) {
	if hint == nil {
		return
	}
	if name := scopeProperty(hint.Scope); name != "" {
		if _, seen := rank[name]; !seen {
			rank[name] = len(rank)
		}
	}
	for i := range hint.Elements {
		collectScopes(&hint.Elements[i], rank)
	}
}

// scopeProperty extracts the top-level property name from a scope reference
// like "#/properties/Name" or "#/properties/Name/properties/Inner".
func scopeProperty(scope string) string {
	if scope == "" {
		return ""
	}
	parts := strings.Split(scope, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "properties" {
			return parts[i+1]
		}
	}
	return ""
}
