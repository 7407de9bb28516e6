package configutil

import (
	"sort"
	"strings"

	"github.com/harunnryd/calltime/pkg/errorsx"
)

// Schema lists the settings keys a sink accepts.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// ValidateSettings reports missing required keys and, unless AllowUnknown is
// set, keys the schema does not know. Key matching follows DecodeSettings.
func ValidateSettings(input map[string]any, schema Schema) error {
	required := make(map[string]string, len(schema.Required))
	allowed := make(map[string]struct{}, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Required {
		required[normalizeKey(k)] = k
		allowed[normalizeKey(k)] = struct{}{}
	}
	for _, k := range schema.Optional {
		allowed[normalizeKey(k)] = struct{}{}
	}

	var missing, unknown []string
	present := make(map[string]bool, len(input))
	for k, v := range input {
		nk := normalizeKey(k)
		if _, ok := allowed[nk]; !ok && !schema.AllowUnknown {
			unknown = append(unknown, k)
		}
		if !isEmptyValue(v) {
			present[nk] = true
		}
	}
	for nk, key := range required {
		if !present[nk] {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(unknown, ", "))
	}
	return errorsx.Newf(errorsx.ReasonConfigInvalid, "%s", strings.Join(parts, "; "))
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
