package tools

import (
	"fmt"
	"sort"
	"strings"
)

// validateArgs checks args against a JSON-Schema object and returns the list
// of violations (empty when valid). Supported checks: primitive types, enum,
// numeric minimum/maximum, string minLength/maxLength, required keys, and
// recursive properties/items. Unknown keys pass.
func validateArgs(args map[string]interface{}, schema map[string]interface{}) []string {
	return validateValue(args, schema, "")
}

func validateValue(value interface{}, schema map[string]interface{}, path string) []string {
	var errs []string
	expectedType, _ := schema["type"].(string)
	label := path
	if label == "" {
		label = "parameter"
	}

	if expectedType != "" && !typeMatches(value, expectedType) {
		return []string{fmt.Sprintf("%s should be %s", label, expectedType)}
	}

	if enum, ok := schema["enum"].([]interface{}); ok && !enumContains(enum, value) {
		errs = append(errs, fmt.Sprintf("%s must be one of %s", label, formatEnum(enum)))
	}

	switch expectedType {
	case "integer", "number":
		n := asFloat(value)
		if min, ok := asSchemaNumber(schema["minimum"]); ok && n < min {
			errs = append(errs, fmt.Sprintf("%s must be >= %v", label, schema["minimum"]))
		}
		if max, ok := asSchemaNumber(schema["maximum"]); ok && n > max {
			errs = append(errs, fmt.Sprintf("%s must be <= %v", label, schema["maximum"]))
		}

	case "string":
		s, _ := value.(string)
		if min, ok := asSchemaNumber(schema["minLength"]); ok && float64(len(s)) < min {
			errs = append(errs, fmt.Sprintf("%s must be at least %v characters", label, schema["minLength"]))
		}
		if max, ok := asSchemaNumber(schema["maxLength"]); ok && float64(len(s)) > max {
			errs = append(errs, fmt.Sprintf("%s must be at most %v characters", label, schema["maxLength"]))
		}

	case "object":
		obj, _ := value.(map[string]interface{})
		props, _ := schema["properties"].(map[string]interface{})

		if required, ok := schema["required"].([]interface{}); ok {
			for _, rk := range required {
				key, _ := rk.(string)
				if _, present := obj[key]; !present {
					errs = append(errs, fmt.Sprintf("missing required %s", joinPath(path, key)))
				}
			}
		} else if required, ok := schema["required"].([]string); ok {
			for _, key := range required {
				if _, present := obj[key]; !present {
					errs = append(errs, fmt.Sprintf("missing required %s", joinPath(path, key)))
				}
			}
		}

		// Deterministic order for error output.
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			propSchema, ok := props[k].(map[string]interface{})
			if !ok {
				continue
			}
			errs = append(errs, validateValue(obj[k], propSchema, joinPath(path, k))...)
		}

	case "array":
		items, ok := schema["items"].(map[string]interface{})
		if !ok {
			break
		}
		arr, _ := value.([]interface{})
		for i, item := range arr {
			errs = append(errs, validateValue(item, items, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return errs
}

func typeMatches(value interface{}, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	}
	return true
}

func enumContains(enum []interface{}, value interface{}) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
		// JSON numbers decode as float64; tolerate int/float comparison.
		if fe, ok := asSchemaNumber(e); ok {
			if fv, ok2 := asSchemaNumber(value); ok2 && fe == fv {
				return true
			}
		}
	}
	return false
}

func formatEnum(enum []interface{}) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprintf("%v", e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func asFloat(value interface{}) float64 {
	f, _ := asSchemaNumber(value)
	return f
}

func asSchemaNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
