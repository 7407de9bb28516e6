// Package configutil decodes and validates the free-form settings maps that
// sink definitions carry in the config file.
package configutil

import (
	"strings"

	"github.com/harunnryd/calltime/pkg/errorsx"
	"github.com/mitchellh/mapstructure"
)

// DecodeSettings decodes a settings map into out. Keys match struct fields
// ignoring case, underscores and hyphens; "250ms" style strings decode into
// time.Duration fields.
func DecodeSettings(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	cfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConfigDecode)
	}
	if err := decoder.Decode(input); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConfigDecode)
	}
	return nil
}

// StringValue returns fallback when value is blank.
func StringValue(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// IntValue returns fallback when value is nil.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// BoolValue returns fallback when value is nil.
func BoolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
