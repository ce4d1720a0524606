package exploration

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// exportFormat mirrors the exploration with keys in lexical order.
type exportFormat struct {
	AuthorNotes        string               `yaml:"author_notes"`
	Blurb              string               `yaml:"blurb"`
	Category           string               `yaml:"category"`
	DefaultSkin        string               `yaml:"default_skin"`
	InitStateName      string               `yaml:"init_state_name"`
	LanguageCode       string               `yaml:"language_code"`
	Objective          string               `yaml:"objective"`
	ParamChanges       []ParamChange        `yaml:"param_changes"`
	ParamSpecs         map[string]ParamSpec `yaml:"param_specs"`
	SchemaVersion      int                  `yaml:"schema_version"`
	SkinCustomizations skinCustomizations   `yaml:"skin_customizations"`
	States             map[string]*State    `yaml:"states"`
	Tags               []string             `yaml:"tags"`
	Title              string               `yaml:"title"`
}

type skinCustomizations struct {
	PanelsContents map[string]any `yaml:"panels_contents"`
}

// ToYAML renders the exploration in its export format.
func (e *Exploration) ToYAML() ([]byte, error) {
	return marshalYAML(exportFormat{
		AuthorNotes:        e.AuthorNotes,
		Blurb:              e.Blurb,
		Category:           e.Category,
		DefaultSkin:        e.DefaultSkin,
		InitStateName:      e.InitStateName,
		LanguageCode:       e.LanguageCode,
		Objective:          e.Objective,
		ParamChanges:       e.ParamChanges,
		ParamSpecs:         e.ParamSpecs,
		SchemaVersion:      e.SchemaVersion,
		SkinCustomizations: skinCustomizations{PanelsContents: map[string]any{}},
		States:             e.States,
		Tags:               e.Tags,
		Title:              e.Title,
	})
}

// StatesToYAML renders each state separately, keyed by state name.
func (e *Exploration) StatesToYAML() (map[string]string, error) {
	out := make(map[string]string, len(e.States))
	for name, state := range e.States {
		data, err := marshalYAML(state)
		if err != nil {
			return nil, err
		}
		out[name] = string(data)
	}
	return out, nil
}

// StateFromYAML parses a state rendered by StatesToYAML.
func StateFromYAML(data []byte) (*State, error) {
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func marshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
