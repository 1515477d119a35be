package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Param types accepted in a Param declaration.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Param declares one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Items       string   // element type for arrays
	Enum        []string // allowed values for strings
}

// BuildSchema derives the JSON schema object for a parameter list.
func BuildSchema(params []Param) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Type == TypeArray {
			items := p.Items
			if items == "" {
				items = TypeString
			}
			prop["items"] = map[string]interface{}{"type": items}
		}
		if len(p.Enum) > 0 {
			prop["enum"] = append([]string(nil), p.Enum...)
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Args holds decoded tool arguments.
type Args map[string]interface{}

// String returns a string argument or defaultVal.
func (a Args) String(key, defaultVal string) string {
	if val, ok := a[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// Int returns an integer argument or defaultVal.
func (a Args) Int(key string, defaultVal int) int {
	if val, ok := a[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
			if f, err := v.Float64(); err == nil {
				return int(f)
			}
		}
	}
	return defaultVal
}

// Bool returns a boolean argument or defaultVal.
func (a Args) Bool(key string, defaultVal bool) bool {
	if val, ok := a[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// validateArgs checks presence of required arguments and the JSON type of
// every declared one. Undeclared arguments are ignored.
func validateArgs(params []Param, args Args) error {
	var problems []string
	for _, p := range params {
		val, ok := args[p.Name]
		if !ok || val == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", p.Name))
			}
			continue
		}
		if !hasType(val, p.Type) {
			problems = append(problems, fmt.Sprintf("parameter %q must be of type %s", p.Name, p.Type))
			continue
		}
		if len(p.Enum) > 0 {
			s, _ := val.(string)
			if !contains(p.Enum, s) {
				problems = append(problems, fmt.Sprintf("parameter %q must be one of %s", p.Name, strings.Join(p.Enum, ", ")))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func hasType(val interface{}, typ string) bool {
	switch typ {
	case TypeString:
		_, ok := val.(string)
		return ok
	case TypeBoolean:
		_, ok := val.(bool)
		return ok
	case TypeInteger:
		switch v := val.(type) {
		case json.Number:
			_, err := v.Int64()
			return err == nil
		case float64:
			return v == float64(int64(v))
		case int:
			return true
		}
		return false
	case TypeNumber:
		switch val.(type) {
		case json.Number, float64, int:
			return true
		}
		return false
	case TypeArray:
		_, ok := val.([]interface{})
		return ok
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
