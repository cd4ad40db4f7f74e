package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatKey turns a snake_case extraction key into Title Case.
func FormatKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FormatValue renders an extracted value for display.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "N/A"
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case map[string]interface{}, []interface{}:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	default:
		return fmt.Sprint(v)
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// StructuredField is one display row of extracted data.
type StructuredField struct {
	Key   string
	Label string
	Value string
	Bool  *bool
}

// StructuredFields returns display rows in stable key order.
func StructuredFields(data map[string]interface{}) []StructuredField {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]StructuredField, 0, len(keys))
	for _, k := range keys {
		f := StructuredField{Key: k, Label: FormatKey(k), Value: FormatValue(data[k])}
		if b, ok := data[k].(bool); ok {
			f.Bool = &b
		}
		fields = append(fields, f)
	}
	return fields
}
