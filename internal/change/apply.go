package change

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/emrgen/exploration/internal/exploration"
)

var definitionKeys = map[string]bool{
	"rule_type": true,
	"name":      true,
	"inputs":    true,
	"subject":   true,
}

// Apply runs the change list against a private copy of base and returns the
// result. base is never modified; a failing command discards all previous
// commands of the list.
func Apply(base *exploration.Exploration, list List) (*exploration.Exploration, error) {
	doc, err := base.Clone()
	if err != nil {
		return nil, err
	}

	for _, c := range list {
		if err := apply(doc, c); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func apply(doc *exploration.Exploration, c Command) error {
	switch c := c.(type) {
	case SetProperty:
		return setProperty(doc, c)
	case SetStateProperty:
		return setStateProperty(doc, c)
	case AddState:
		return doc.AddStates([]string{c.StateName})
	case RenameState:
		return doc.RenameState(c.OldStateName, c.NewStateName)
	case DeleteState:
		return doc.DeleteState(c.StateName)
	case CreateMarker, RevertMarker, DeleteMarker:
		return nil
	}

	return invalidf("Invalid change command: %T", c)
}

func setProperty(doc *exploration.Exploration, c SetProperty) error {
	var err error
	switch c.PropertyName {
	case PropertyTitle:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.Title)
	case PropertyCategory:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.Category)
	case PropertyObjective:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.Objective)
	case PropertyLanguageCode:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.LanguageCode)
	case PropertyBlurb:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.Blurb)
	case PropertyAuthorNotes:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.AuthorNotes)
	case PropertyDefaultSkin:
		err = decodeValue(c.PropertyName, c.NewValue, &doc.DefaultSkin)
	case PropertyInitStateName:
		var name string
		if err = decodeValue(c.PropertyName, c.NewValue, &name); err != nil {
			return err
		}
		if _, ok := doc.States[name]; !ok {
			return invalidf("State %s does not exist", name)
		}
		doc.InitStateName = name
	case PropertyTags:
		var tags []string
		if err = decodeValue(c.PropertyName, c.NewValue, &tags); err != nil {
			return err
		}
		if tags == nil {
			tags = []string{}
		}
		doc.Tags = tags
	case PropertyParamSpecs:
		var specs map[string]exploration.ParamSpec
		if err = decodeValue(c.PropertyName, c.NewValue, &specs); err != nil {
			return err
		}
		if specs == nil {
			specs = map[string]exploration.ParamSpec{}
		}
		doc.ParamSpecs = specs
	case PropertyParamChanges:
		changes, err := decodeParamChanges(c.NewValue)
		if err != nil {
			return err
		}
		doc.ParamChanges = changes
	default:
		return invalidf("Unrecognized exploration property: %s", c.PropertyName)
	}

	return err
}

func setStateProperty(doc *exploration.Exploration, c SetStateProperty) error {
	state, ok := doc.States[c.StateName]
	if !ok {
		return invalidf("State %s does not exist", c.StateName)
	}

	switch c.PropertyName {
	case StatePropertyContent:
		content, err := decodeContent(c.NewValue)
		if err != nil {
			return err
		}
		state.Content = content
	case StatePropertyInteractionID:
		var id string
		if err := decodeValue(c.PropertyName, c.NewValue, &id); err != nil {
			return err
		}
		if id != "" && !exploration.IsInteraction(id) {
			return invalidf("Invalid interaction id: %s. Expected one of: %s", id, strings.Join(exploration.InteractionIDs(), ", "))
		}
		state.UpdateInteractionID(id)
	case StatePropertyInteractionCustArgs:
		args, err := decodeCustomizationArgs(c.NewValue)
		if err != nil {
			return err
		}
		state.Interaction.CustomizationArgs = args
	case StatePropertyInteractionHandlers:
		handlers, err := decodeHandlers(doc, c.StateName, state, c.NewValue)
		if err != nil {
			return err
		}
		state.Interaction.Handlers = handlers
	case StatePropertyInteractionSticky:
		if err := decodeValue(c.PropertyName, c.NewValue, &state.Interaction.Sticky); err != nil {
			return err
		}
	case StatePropertyParamChanges:
		changes, err := decodeParamChanges(c.NewValue)
		if err != nil {
			return err
		}
		state.ParamChanges = changes
	default:
		return invalidf("Unrecognized state property: %s", c.PropertyName)
	}

	return nil
}

func decodeValue(property string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return invalidf("Missing new value for property %s", property)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidf("Invalid value for property %s: %v", property, err)
	}
	return nil
}

func decodeContent(raw json.RawMessage) ([]exploration.ContentItem, error) {
	var items []map[string]json.RawMessage
	if err := decodeValue(StatePropertyContent, raw, &items); err != nil {
		return nil, err
	}

	content := make([]exploration.ContentItem, 0, len(items))
	for _, item := range items {
		var ci exploration.ContentItem
		for _, key := range []string{"type", "value"} {
			if _, ok := item[key]; !ok {
				return nil, invalidf("Content item is missing key: %s", key)
			}
		}
		if err := json.Unmarshal(item["type"], &ci.Type); err != nil {
			return nil, invalidf("Invalid content type: %v", err)
		}
		if err := json.Unmarshal(item["value"], &ci.Value); err != nil {
			return nil, invalidf("Invalid content value: %v", err)
		}
		content = append(content, ci)
	}

	return content, nil
}

func decodeCustomizationArgs(raw json.RawMessage) (map[string]exploration.CustomizationArg, error) {
	var args map[string]map[string]any
	if err := decodeValue(StatePropertyInteractionCustArgs, raw, &args); err != nil {
		return nil, err
	}

	out := make(map[string]exploration.CustomizationArg, len(args))
	for name, arg := range args {
		value, ok := arg["value"]
		if !ok {
			return nil, invalidf("Customization arg %s is missing key: value", name)
		}
		out[name] = exploration.CustomizationArg{Value: value}
	}

	return out, nil
}

func decodeParamChanges(raw json.RawMessage) ([]exploration.ParamChange, error) {
	var changes []exploration.ParamChange
	if err := decodeValue(PropertyParamChanges, raw, &changes); err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []exploration.ParamChange{}
	}
	return changes, nil
}

// wireRule is a rule spec as sent by editors. Unknown keys such as
// description are dropped.
type wireRule struct {
	Definition   map[string]json.RawMessage `json:"definition"`
	Dest         string                     `json:"dest"`
	Feedback     []string                   `json:"feedback"`
	ParamChanges []exploration.ParamChange  `json:"param_changes"`
}

func decodeHandlers(doc *exploration.Exploration, stateName string, state *exploration.State, raw json.RawMessage) ([]exploration.Handler, error) {
	var wire map[string][]wireRule
	if err := decodeValue(StatePropertyInteractionHandlers, raw, &wire); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(wire))
	for name := range wire {
		names = append(names, name)
	}
	sort.Strings(names)

	handlers := make([]exploration.Handler, 0, len(wire))
	for _, name := range names {
		types, err := ruleTypes(name, wire[name])
		if err != nil {
			return nil, err
		}
		if err := exploration.ValidateRuleset(stateName, types); err != nil {
			return nil, err
		}

		handler := exploration.Handler{Name: name, RuleSpecs: make([]exploration.RuleSpec, 0, len(wire[name]))}
		for _, wr := range wire[name] {
			rule, err := decodeRule(state.Interaction.ID, wr)
			if err != nil {
				return nil, err
			}
			handler.RuleSpecs = append(handler.RuleSpecs, rule)
		}

		for _, rule := range handler.RuleSpecs {
			if rule.Dest == exploration.TerminalState {
				continue
			}
			if _, ok := doc.States[rule.Dest]; !ok {
				return nil, invalidf("The destination %s is not a valid state.", rule.Dest)
			}
		}

		handlers = append(handlers, handler)
	}

	return handlers, nil
}

// ruleTypes returns a handler holding only the rule types of the wire rules,
// enough to check the position of the default rule.
func ruleTypes(name string, rules []wireRule) (exploration.Handler, error) {
	handler := exploration.Handler{Name: name}
	for _, wr := range rules {
		var def exploration.RuleDefinition
		if raw, ok := wr.Definition["rule_type"]; ok {
			if err := json.Unmarshal(raw, &def.RuleType); err != nil {
				return handler, invalidf("Invalid rule definition rule_type: %v", err)
			}
		}
		handler.RuleSpecs = append(handler.RuleSpecs, exploration.RuleSpec{Definition: def})
	}
	return handler, nil
}

func decodeRule(interactionID string, wr wireRule) (exploration.RuleSpec, error) {
	rule := exploration.RuleSpec{
		Dest:         wr.Dest,
		Feedback:     wr.Feedback,
		ParamChanges: wr.ParamChanges,
	}
	if rule.Feedback == nil {
		rule.Feedback = []string{}
	}
	if rule.ParamChanges == nil {
		rule.ParamChanges = []exploration.ParamChange{}
	}

	if wr.Definition == nil {
		return rule, invalidf("Rule spec is missing key: definition")
	}
	for key := range wr.Definition {
		if !definitionKeys[key] {
			return rule, invalidf("Rule definition %s should conform to schema: unexpected key %s", compact(wr.Definition), key)
		}
	}

	def := &rule.Definition
	if err := unmarshalKey(wr.Definition, "rule_type", &def.RuleType); err != nil {
		return rule, err
	}
	if def.IsDefault() {
		return rule, nil
	}

	if err := unmarshalKey(wr.Definition, "name", &def.Name); err != nil {
		return rule, err
	}
	if err := unmarshalKey(wr.Definition, "inputs", &def.Inputs); err != nil {
		return rule, err
	}
	if _, ok := wr.Definition["subject"]; ok {
		if err := unmarshalKey(wr.Definition, "subject", &def.Subject); err != nil {
			return rule, err
		}
	}

	inputs, err := exploration.CoerceRuleInputs(interactionID, def.Name, def.Inputs)
	if err != nil {
		return rule, err
	}
	def.Inputs = inputs

	return rule, nil
}

func unmarshalKey(def map[string]json.RawMessage, key string, v any) error {
	raw, ok := def[key]
	if !ok {
		return invalidf("Rule definition is missing key: %s", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidf("Invalid rule definition %s: %v", key, err)
	}
	return nil
}

func compact(def map[string]json.RawMessage) string {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Sprint(def)
	}
	return string(data)
}

func invalidf(format string, args ...any) error {
	return &exploration.ValidationError{Msg: fmt.Sprintf(format, args...)}
}
