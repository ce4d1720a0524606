package exploration

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Rule input object types.
const (
	ObjInt              = "Int"
	ObjNonnegativeInt   = "NonnegativeInt"
	ObjReal             = "Real"
	ObjUnicodeString    = "UnicodeString"
	ObjNormalizedString = "NormalizedString"
)

type interactionSpec struct {
	handlers          []string
	rules             map[string]map[string]string
	customizationArgs map[string]any
}

var interactions = map[string]interactionSpec{
	"TextInput": {
		handlers: []string{DefaultHandlerName},
		rules: map[string]map[string]string{
			"Equals":              {"x": ObjNormalizedString},
			"CaseSensitiveEquals": {"x": ObjNormalizedString},
			"StartsWith":          {"x": ObjNormalizedString},
			"Contains":            {"x": ObjNormalizedString},
		},
		customizationArgs: map[string]any{"placeholder": "", "rows": 1},
	},
	"MultipleChoiceInput": {
		handlers: []string{DefaultHandlerName},
		rules: map[string]map[string]string{
			"Equals": {"x": ObjNonnegativeInt},
		},
		customizationArgs: map[string]any{"choices": []string{""}},
	},
	"NumericInput": {
		handlers: []string{DefaultHandlerName},
		rules: map[string]map[string]string{
			"Equals":               {"x": ObjReal},
			"IsLessThan":           {"x": ObjReal},
			"IsGreaterThan":        {"x": ObjReal},
			"IsInclusivelyBetween": {"a": ObjReal, "b": ObjReal},
		},
		customizationArgs: map[string]any{},
	},
	"Continue": {
		handlers:          []string{DefaultHandlerName},
		rules:             map[string]map[string]string{},
		customizationArgs: map[string]any{"buttonText": "Continue"},
	},
	"EndExploration": {
		handlers:          []string{DefaultHandlerName},
		rules:             map[string]map[string]string{},
		customizationArgs: map[string]any{"recommendedExplorationIds": []string{}},
	},
}

// IsInteraction reports whether id names a registered interaction.
func IsInteraction(id string) bool {
	_, ok := interactions[id]
	return ok
}

// InteractionIDs lists the registered interactions.
func InteractionIDs() []string {
	ids := make([]string, 0, len(interactions))
	for id := range interactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CoerceRuleInputs converts the inputs of an atomic rule to the object types
// the interaction declares for that rule.
func CoerceRuleInputs(interactionID, ruleName string, inputs map[string]any) (map[string]any, error) {
	spec, ok := interactions[interactionID]
	if !ok {
		return nil, validationErrorf("Invalid interaction id %s", interactionID)
	}

	params, ok := spec.rules[ruleName]
	if !ok {
		return nil, validationErrorf("Unknown rule %s for interaction %s", ruleName, interactionID)
	}

	for key := range inputs {
		if _, ok := params[key]; !ok {
			return nil, validationErrorf("Rule inputs %v should conform to schema: unexpected input %s", inputs, key)
		}
	}

	coerced := make(map[string]any, len(params))
	for name, objType := range params {
		raw, ok := inputs[name]
		if !ok {
			return nil, validationErrorf("Rule %s is missing input %s", ruleName, name)
		}
		value, err := coerce(objType, raw)
		if err != nil {
			return nil, err
		}
		coerced[name] = value
	}

	return coerced, nil
}

func coerce(objType string, raw any) (any, error) {
	switch objType {
	case ObjInt:
		return toInt(raw)
	case ObjNonnegativeInt:
		v, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, validationErrorf("Expected a nonnegative integer, received %d", v)
		}
		return v, nil
	case ObjReal:
		return toReal(raw)
	case ObjUnicodeString:
		s, ok := raw.(string)
		if !ok {
			return nil, validationErrorf("Expected unicode string, received %v", raw)
		}
		return s, nil
	case ObjNormalizedString:
		s, ok := raw.(string)
		if !ok {
			return nil, validationErrorf("Expected unicode string, received %v", raw)
		}
		return strings.Join(strings.Fields(s), " "), nil
	}

	return nil, validationErrorf("Unknown object type %s", objType)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, validationErrorf("Could not convert %v to int", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, validationErrorf("invalid literal for int() with base 10: '%s'", v)
		}
		return n, nil
	}

	return 0, validationErrorf("Could not convert %v to int", raw)
}

func toReal(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, validationErrorf("could not convert string to float: '%s'", v)
		}
		return f, nil
	}

	return 0, validationErrorf("Could not convert %v to float", raw)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describeRuleset(state string, handler Handler) string {
	return fmt.Sprintf("%s/%s", state, handler.Name)
}
