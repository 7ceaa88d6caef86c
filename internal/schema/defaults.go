package schema

import "strings"

var timeNameHints = []string{"time", "duration", "cooldown", "delay"}

// defaultTimeSpan is the value string fields with a time/duration style name
// start out with.
const defaultTimeSpan = "00:00:45"

// SynthesizeDefault produces a fully populated default value for a schema
// node. An explicit schema default always wins; otherwise enum and field-name
// heuristics apply before plain type-based zero values. The function is pure
// and total: it never panics and always returns something, degrading to nil
// for untyped or unrecognized nodes.
func SynthesizeDefault(v *Variant, doc *Document, fieldName string) any {
	return synthesize(v, doc, fieldName, 0)
}

// SynthesizeDocument synthesizes a default document for the root of a parsed
// schema document.
func SynthesizeDocument(doc *Document) any {
	if doc == nil {
		return nil
	}
	return synthesize(doc.Root, doc, "", 0)
}

func synthesize(v *Variant, doc *Document, fieldName string, depth int) any {
	if v == nil || depth > maxDepth {
		return nil
	}
	if v.HasDefault {
		return v.Default
	}
	switch v.Kind {
	case KindRef:
		if resolved := doc.Resolve(v); resolved != nil {
			return synthesize(resolved, doc, fieldName, depth+1)
		}
		return nil
	case KindEnum:
		if nameSuggestsRarity(fieldName) {
			for _, option := range v.Enum {
				if s, ok := option.(string); ok && strings.EqualFold(s, "common") {
					return option
				}
			}
		}
		return v.Enum[0]
	case KindObject:
		value := make(map[string]any, len(v.Properties))
		for _, prop := range v.Properties {
			value[prop.Name] = synthesize(prop.Schema, doc, prop.Name, depth+1)
		}
		return value
	case KindArray:
		return []any{}
	default:
		switch v.Primitive {
		case "string":
			if nameSuggestsTime(fieldName) {
				return defaultTimeSpan
			}
			return ""
		case "number", "integer":
			return float64(0)
		case "boolean":
			return false
		}
		return nil
	}
}

func nameSuggestsRarity(fieldName string) bool {
	name := strings.ToLower(fieldName)
	return strings.Contains(name, "rarity") || strings.Contains(name, "type")
}

func nameSuggestsTime(fieldName string) bool {
	name := strings.ToLower(fieldName)
	for _, hint := range timeNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}
