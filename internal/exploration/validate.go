package exploration

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const maxNameLength = 50

var (
	tagPattern = regexp.MustCompile(`^[a-z ]+$`)

	languageCodes = map[string]bool{
		"ar": true, "bg": true, "de": true, "en": true, "es": true,
		"fr": true, "hi": true, "id": true, "it": true, "ja": true,
		"ko": true, "nl": true, "pl": true, "pt": true, "ru": true,
		"tr": true, "vi": true, "zh": true,
	}

	generators = map[string]bool{
		"Copier":         true,
		"RandomSelector": true,
	}
)

// ValidationError reports a structural or schema violation in an
// exploration or a change command.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ValidateName checks that a title, category or state name is between 1 and
// 50 characters.
func ValidateName(kind, name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLength {
		return validationErrorf("%s %q must be between 1 and %d characters", kind, name, maxNameLength)
	}
	return nil
}

func validateStateName(name string) error {
	if err := ValidateName("State name", name); err != nil {
		return err
	}
	if name == TerminalState {
		return validationErrorf("Invalid state name: %s", TerminalState)
	}
	return nil
}

// Validate checks the structure of the exploration. Strict validation also
// requires everything needed before the exploration can be published.
func (e *Exploration) Validate(strict bool) error {
	if err := ValidateName("Title", e.Title); err != nil {
		return err
	}
	if err := ValidateName("Category", e.Category); err != nil {
		return err
	}
	if !languageCodes[e.LanguageCode] {
		return validationErrorf("Invalid language_code: %s", e.LanguageCode)
	}

	seen := make(map[string]bool, len(e.Tags))
	for _, tag := range e.Tags {
		if !tagPattern.MatchString(tag) || tag[0] == ' ' || tag[len(tag)-1] == ' ' {
			return validationErrorf("Tags should only contain lowercase letters and spaces, received '%s'", tag)
		}
		if seen[tag] {
			return validationErrorf("Some tags duplicate each other")
		}
		seen[tag] = true
	}

	if len(e.States) == 0 {
		return validationErrorf("This exploration has no states.")
	}
	if _, ok := e.States[e.InitStateName]; !ok {
		return validationErrorf("There is no state corresponding to the exploration's initial state name %s.", e.InitStateName)
	}

	for name, spec := range e.ParamSpecs {
		if name == "" {
			return validationErrorf("Parameter names cannot be empty")
		}
		if spec.ObjType == "" {
			return validationErrorf("Parameter %s has no object type", name)
		}
	}
	if err := e.validateParamChanges(e.ParamChanges, "the exploration"); err != nil {
		return err
	}

	for _, name := range e.StateNames() {
		if err := validateStateName(name); err != nil {
			return err
		}
		if err := e.validateState(name, e.States[name], strict); err != nil {
			return err
		}
	}

	if strict {
		if e.Objective == "" {
			return validationErrorf("An objective must be specified (in the 'Settings' tab).")
		}
	}

	return nil
}

func (e *Exploration) validateState(name string, s *State, strict bool) error {
	if s == nil {
		return validationErrorf("State %s is empty", name)
	}
	for _, item := range s.Content {
		if item.Type != "text" {
			return validationErrorf("Invalid content type %s in state %s", item.Type, name)
		}
	}
	if err := e.validateParamChanges(s.ParamChanges, "state "+name); err != nil {
		return err
	}

	interaction := s.Interaction
	if interaction.ID == "" {
		if strict {
			return validationErrorf("This state %s does not have any interaction specified.", name)
		}
	} else if !IsInteraction(interaction.ID) {
		return validationErrorf("Invalid interaction id: %s", interaction.ID)
	}

	for _, handler := range interaction.Handlers {
		if err := ValidateRuleset(name, handler); err != nil {
			return err
		}
		for _, rule := range handler.RuleSpecs {
			if rule.Dest != TerminalState {
				if _, ok := e.States[rule.Dest]; !ok {
					return validationErrorf("The destination %s is not a valid state.", rule.Dest)
				}
			}
			if err := e.validateParamChanges(rule.ParamChanges, "a rule of state "+name); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateRuleset checks that exactly the last rule of a handler is a
// default rule.
func ValidateRuleset(stateName string, handler Handler) error {
	rules := handler.RuleSpecs
	if len(rules) == 0 {
		return validationErrorf("Invalid ruleset %s: the last rule should be a default rule", describeRuleset(stateName, handler))
	}
	for i, rule := range rules[:len(rules)-1] {
		if rule.Definition.IsDefault() {
			return validationErrorf("Invalid ruleset %s: rules other than the last one should not be default rules (rule %d)", describeRuleset(stateName, handler), i)
		}
	}
	if !rules[len(rules)-1].Definition.IsDefault() {
		return validationErrorf("Invalid ruleset %s: the last rule should be a default rule", describeRuleset(stateName, handler))
	}
	return nil
}

func (e *Exploration) validateParamChanges(changes []ParamChange, where string) error {
	for _, pc := range changes {
		if _, ok := e.ParamSpecs[pc.Name]; !ok {
			return validationErrorf("The parameter with name '%s' was used in %s, but it does not exist in this exploration. Please add it in the 'Settings' tab.", pc.Name, where)
		}
		if !generators[pc.GeneratorID] {
			return validationErrorf("Invalid generator id %s", pc.GeneratorID)
		}
	}
	return nil
}
