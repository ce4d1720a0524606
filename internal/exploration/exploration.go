package exploration

import (
	"encoding/json"
	"fmt"
)

const (
	// TerminalState is the rule destination that ends an exploration.
	TerminalState = "END"
	// DefaultInitStateName is the name of the first state of a new exploration.
	DefaultInitStateName = "First State"
	DefaultLanguageCode  = "en"
	DefaultSkin          = "conversation_v1"
	// SchemaVersion is the content schema written by this version of the service.
	SchemaVersion = 5

	DefaultRuleType    = "default"
	AtomicRuleType     = "atomic"
	DefaultHandlerName = "submit"
	DefaultInteraction = "TextInput"
)

// Exploration is the versioned document edited through change lists.
type Exploration struct {
	ID            string               `json:"id"`
	Version       int64                `json:"-"`
	Title         string               `json:"title"`
	Category      string               `json:"category"`
	Objective     string               `json:"objective"`
	LanguageCode  string               `json:"language_code"`
	Tags          []string             `json:"tags"`
	Blurb         string               `json:"blurb"`
	AuthorNotes   string               `json:"author_notes"`
	DefaultSkin   string               `json:"default_skin"`
	InitStateName string               `json:"init_state_name"`
	States        map[string]*State    `json:"states"`
	ParamSpecs    map[string]ParamSpec `json:"param_specs"`
	ParamChanges  []ParamChange        `json:"param_changes"`
	SchemaVersion int                  `json:"schema_version"`
}

type State struct {
	Content      []ContentItem `json:"content" yaml:"content"`
	Interaction  Interaction   `json:"interaction" yaml:"interaction"`
	ParamChanges []ParamChange `json:"param_changes" yaml:"param_changes"`
}

type ContentItem struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

type Interaction struct {
	CustomizationArgs map[string]CustomizationArg `json:"customization_args" yaml:"customization_args"`
	Handlers          []Handler                   `json:"handlers" yaml:"handlers"`
	ID                string                      `json:"id" yaml:"id"`
	Sticky            bool                        `json:"sticky" yaml:"sticky,omitempty"`
}

type CustomizationArg struct {
	Value any `json:"value" yaml:"value"`
}

type Handler struct {
	Name      string     `json:"name" yaml:"name"`
	RuleSpecs []RuleSpec `json:"rule_specs" yaml:"rule_specs"`
}

type RuleSpec struct {
	Definition   RuleDefinition `json:"definition" yaml:"definition"`
	Dest         string         `json:"dest" yaml:"dest"`
	Feedback     []string       `json:"feedback" yaml:"feedback"`
	ParamChanges []ParamChange  `json:"param_changes" yaml:"param_changes"`
}

// RuleDefinition describes when a rule fires. Only atomic rules carry a
// name, inputs and a subject.
type RuleDefinition struct {
	Inputs   map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	RuleType string         `json:"rule_type" yaml:"rule_type"`
	Subject  string         `json:"subject,omitempty" yaml:"subject,omitempty"`
}

func (d RuleDefinition) IsDefault() bool {
	return d.RuleType == DefaultRuleType
}

type ParamSpec struct {
	ObjType string `json:"obj_type" yaml:"obj_type"`
}

type ParamChange struct {
	CustomizationArgs map[string]any `json:"customization_args" yaml:"customization_args"`
	GeneratorID       string         `json:"generator_id" yaml:"generator_id"`
	Name              string         `json:"name" yaml:"name"`
}

// New returns an exploration with a single looping text input state.
func New(id, title, category string) *Exploration {
	e := &Exploration{
		ID:            id,
		Title:         title,
		Category:      category,
		LanguageCode:  DefaultLanguageCode,
		Tags:          []string{},
		DefaultSkin:   DefaultSkin,
		InitStateName: DefaultInitStateName,
		States:        map[string]*State{},
		ParamSpecs:    map[string]ParamSpec{},
		ParamChanges:  []ParamChange{},
		SchemaVersion: SchemaVersion,
	}

	state := NewState(DefaultInitStateName)
	state.UpdateInteractionID(DefaultInteraction)
	e.States[DefaultInitStateName] = state

	return e
}

// NewState returns an empty state whose default rule points back at itself.
func NewState(name string) *State {
	return &State{
		Content: []ContentItem{{Type: "text", Value: ""}},
		Interaction: Interaction{
			CustomizationArgs: map[string]CustomizationArg{},
			Handlers: []Handler{{
				Name: DefaultHandlerName,
				RuleSpecs: []RuleSpec{{
					Definition:   RuleDefinition{RuleType: DefaultRuleType},
					Dest:         name,
					Feedback:     []string{},
					ParamChanges: []ParamChange{},
				}},
			}},
		},
		ParamChanges: []ParamChange{},
	}
}

// UpdateInteractionID switches the interaction, filling in the default
// customization args of the new interaction when none are set.
func (s *State) UpdateInteractionID(id string) {
	s.Interaction.ID = id
	if len(s.Interaction.CustomizationArgs) != 0 {
		return
	}

	spec, ok := interactions[id]
	if !ok {
		return
	}
	args := make(map[string]CustomizationArg, len(spec.customizationArgs))
	for name, value := range spec.customizationArgs {
		args[name] = CustomizationArg{Value: value}
	}
	s.Interaction.CustomizationArgs = args
}

// AddStates appends default states with the given names.
func (e *Exploration) AddStates(names []string) error {
	for _, name := range names {
		if _, ok := e.States[name]; ok {
			return validationErrorf("Duplicate state name %s", name)
		}
		if err := validateStateName(name); err != nil {
			return err
		}
	}

	for _, name := range names {
		e.States[name] = NewState(name)
	}

	return nil
}

// RenameState renames a state and rewrites every rule destination and the
// init state name that pointed at the old name.
func (e *Exploration) RenameState(oldName, newName string) error {
	state, ok := e.States[oldName]
	if !ok {
		return validationErrorf("State %s does not exist", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := e.States[newName]; ok {
		return validationErrorf("Duplicate state name: %s", newName)
	}
	if err := validateStateName(newName); err != nil {
		return err
	}

	delete(e.States, oldName)
	e.States[newName] = state

	if e.InitStateName == oldName {
		e.InitStateName = newName
	}

	for _, s := range e.States {
		for hi := range s.Interaction.Handlers {
			rules := s.Interaction.Handlers[hi].RuleSpecs
			for ri := range rules {
				if rules[ri].Dest == oldName {
					rules[ri].Dest = newName
				}
			}
		}
	}

	return nil
}

// DeleteState removes a state that is neither the initial state nor the
// destination of a rule in another state.
func (e *Exploration) DeleteState(name string) error {
	if _, ok := e.States[name]; !ok {
		return validationErrorf("State %s does not exist", name)
	}
	if name == e.InitStateName {
		return validationErrorf("Cannot delete initial state of an exploration.")
	}

	for _, from := range e.StateNames() {
		if from == name {
			continue
		}
		for _, handler := range e.States[from].Interaction.Handlers {
			for _, rule := range handler.RuleSpecs {
				if rule.Dest == name {
					return validationErrorf("State %s is still referenced as a rule destination by state %s", name, from)
				}
			}
		}
	}

	delete(e.States, name)

	return nil
}

// StateNames returns the state names in lexical order.
func (e *Exploration) StateNames() []string {
	return sortedKeys(e.States)
}

// Encode serializes the exploration content. Map keys are emitted in sorted
// order so equal explorations produce identical bytes.
func (e *Exploration) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses content written by Encode.
func Decode(data []byte, version int64) (*Exploration, error) {
	var e Exploration
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode exploration: %w", err)
	}
	e.Version = version
	e.normalize()

	return &e, nil
}

// Clone returns a deep copy of the exploration.
func (e *Exploration) Clone() (*Exploration, error) {
	data, err := e.Encode()
	if err != nil {
		return nil, err
	}

	return Decode(data, e.Version)
}

func (e *Exploration) normalize() {
	if e.States == nil {
		e.States = map[string]*State{}
	}
	if e.ParamSpecs == nil {
		e.ParamSpecs = map[string]ParamSpec{}
	}
	if e.ParamChanges == nil {
		e.ParamChanges = []ParamChange{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	for _, s := range e.States {
		if s.ParamChanges == nil {
			s.ParamChanges = []ParamChange{}
		}
		if s.Interaction.CustomizationArgs == nil {
			s.Interaction.CustomizationArgs = map[string]CustomizationArg{}
		}
		for hi := range s.Interaction.Handlers {
			rules := s.Interaction.Handlers[hi].RuleSpecs
			for ri := range rules {
				if rules[ri].Feedback == nil {
					rules[ri].Feedback = []string{}
				}
				if rules[ri].ParamChanges == nil {
					rules[ri].ParamChanges = []ParamChange{}
				}
			}
		}
	}
}
