// Package schema turns raw JSON Schema content into a small tagged-variant
// model that the flattening and default-synthesis logic run against, instead
// of re-inspecting untyped JSON at every call site.
package schema

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Kind discriminates the variant a schema node resolved to.
type Kind int

const (
	KindPrimitive Kind = iota
	KindObject
	KindArray
	KindEnum
	KindRef
)

// maximum nesting depth we will follow when parsing or synthesizing. Cyclic
// $defs degrade to null rather than recursing forever.
const maxDepth = 16

// Property is a named, ordered member of an object schema.
type Property struct {
	Name   string
	Schema *Variant
}

// Variant is one resolved schema node.
type Variant struct {
	Kind       Kind
	Primitive  string // string, number, integer, boolean, null or "" when untyped
	Enum       []any
	Properties []Property // ordered as declared, KindObject only
	Items      *Variant   // KindArray only
	Ref        string     // local $defs target name, "" when external or malformed
	Title      string
	Default    any
	HasDefault bool
}

// Document is a parsed schema document: the logical key ($id), the root
// variant and the local $defs available for single-level ref resolution.
type Document struct {
	Key  string
	Root *Variant

	defs map[string]*Variant
}

// ParseDocument parses raw schema content into a Document. It never fails:
// content that isn't valid JSON yields a document with a nil root, which
// downstream logic treats as "no fields".
func ParseDocument(content string) *Document {
	doc := &Document{defs: make(map[string]*Variant)}
	if !gjson.Valid(content) {
		return doc
	}
	raw := gjson.Parse(content)
	if !raw.IsObject() {
		return doc
	}
	doc.Key = raw.Get("$id").String()
	raw.Get("$defs").ForEach(func(key, value gjson.Result) bool {
		doc.defs[key.String()] = parseVariant(value, 0)
		return true
	})
	doc.Root = parseVariant(raw, 0)
	return doc
}

// Resolve resolves a single level of local $ref. It returns nil for external
// targets, unknown names and non-ref variants.
func (d *Document) Resolve(v *Variant) *Variant {
	if v == nil || v.Kind != KindRef || v.Ref == "" {
		return nil
	}
	return d.defs[v.Ref]
}

func parseVariant(node gjson.Result, depth int) *Variant {
	v := &Variant{}
	if depth > maxDepth || !node.IsObject() {
		return v
	}
	if def := node.Get("default"); def.Exists() {
		v.Default = def.Value()
		v.HasDefault = true
	}
	v.Title = node.Get("title").String()

	if ref := node.Get("$ref"); ref.Exists() {
		v.Kind = KindRef
		v.Ref = localRefTarget(ref.String())
		return v
	}

	if enum := node.Get("enum"); enum.IsArray() {
		if values, ok := enum.Value().([]any); ok && len(values) > 0 {
			v.Kind = KindEnum
			v.Enum = values
			return v
		}
	}

	v.Primitive = primaryType(node.Get("type"))

	props := node.Get("properties")
	switch {
	case v.Primitive == "object", v.Primitive == "" && props.IsObject():
		v.Kind = KindObject
		v.Primitive = "object"
		props.ForEach(func(key, value gjson.Result) bool {
			v.Properties = append(v.Properties, Property{Name: key.String(), Schema: parseVariant(value, depth+1)})
			return true
		})
	case v.Primitive == "array":
		v.Kind = KindArray
		if items := node.Get("items"); items.Exists() {
			v.Items = parseVariant(items, depth+1)
		}
	default:
		v.Kind = KindPrimitive
	}
	return v
}

// primaryType extracts the declared type, picking the first non-null entry
// when the type is a list (or the first entry if every entry is null).
func primaryType(node gjson.Result) string {
	if !node.Exists() {
		return ""
	}
	if node.IsArray() {
		var first string
		var picked string
		node.ForEach(func(_, value gjson.Result) bool {
			s := value.String()
			if first == "" {
				first = s
			}
			if picked == "" && s != "null" {
				picked = s
			}
			return true
		})
		if picked != "" {
			return picked
		}
		return first
	}
	return node.String()
}

// localRefTarget returns the $defs name for local refs like "#/$defs/Foo".
// Anything else (external or multi-segment refs) is unresolvable.
func localRefTarget(ref string) string {
	const prefix = "#/$defs/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	name := strings.TrimPrefix(ref, prefix)
	if name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
