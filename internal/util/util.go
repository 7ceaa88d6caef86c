package util

import "encoding/json"

// JSONStringify converts any value to a JSON string.
func JSONStringify(val any) string {
	buf, _ := json.Marshal(val)
	return string(buf)
}

// Dedupe returns the slice with duplicates removed, first occurrence wins,
// original order preserved.
func Dedupe(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	res := make([]string, 0, len(slice))
	for _, s := range slice {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}
