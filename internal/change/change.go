package change

import (
	"encoding/json"
	"fmt"

	"github.com/emrgen/exploration/internal/exploration"
)

// Kind is the wire name of a change command.
type Kind string

const (
	KindEditExplorationProperty Kind = "edit_exploration_property"
	KindEditStateProperty       Kind = "edit_state_property"
	KindAddState                Kind = "add_state"
	KindRenameState             Kind = "rename_state"
	KindDeleteState             Kind = "delete_state"
	KindCreateNew               Kind = "create_new"
	KindRevert                  Kind = "revert"
	KindDeleteExploration       Kind = "delete_exploration"
)

// Exploration properties accepted by SetProperty.
const (
	PropertyTitle         = "title"
	PropertyCategory      = "category"
	PropertyObjective     = "objective"
	PropertyLanguageCode  = "language_code"
	PropertyTags          = "tags"
	PropertyBlurb         = "blurb"
	PropertyAuthorNotes   = "author_notes"
	PropertyDefaultSkin   = "default_skin"
	PropertyInitStateName = "init_state_name"
	PropertyParamSpecs    = "param_specs"
	PropertyParamChanges  = "param_changes"
)

// State properties accepted by SetStateProperty.
const (
	StatePropertyContent             = "content"
	StatePropertyInteractionID       = "widget_id"
	StatePropertyInteractionCustArgs = "widget_customization_args"
	StatePropertyInteractionHandlers = "widget_handlers"
	StatePropertyInteractionSticky   = "widget_sticky"
	StatePropertyParamChanges        = "param_changes"
)

// Command is one declarative edit. The set of commands is closed: only the
// types in this package implement it.
type Command interface {
	Kind() Kind
	command()
}

// SetProperty sets a top level property of the exploration.
type SetProperty struct {
	PropertyName string
	NewValue     json.RawMessage
	OldValue     json.RawMessage
}

// SetStateProperty sets a property of a single state.
type SetStateProperty struct {
	StateName    string
	PropertyName string
	NewValue     json.RawMessage
	OldValue     json.RawMessage
}

type AddState struct {
	StateName string
}

type RenameState struct {
	OldStateName string
	NewStateName string
}

type DeleteState struct {
	StateName string
}

// CreateMarker is recorded as the only command of the first commit.
type CreateMarker struct {
	Title    string
	Category string
}

// RevertMarker is recorded for commits that restore an older version.
type RevertMarker struct {
	VersionNumber int64
}

// DeleteMarker is recorded for the commit that soft deletes an exploration.
type DeleteMarker struct{}

func (SetProperty) Kind() Kind      { return KindEditExplorationProperty }
func (SetStateProperty) Kind() Kind { return KindEditStateProperty }
func (AddState) Kind() Kind         { return KindAddState }
func (RenameState) Kind() Kind      { return KindRenameState }
func (DeleteState) Kind() Kind      { return KindDeleteState }
func (CreateMarker) Kind() Kind     { return KindCreateNew }
func (RevertMarker) Kind() Kind     { return KindRevert }
func (DeleteMarker) Kind() Kind     { return KindDeleteExploration }

func (SetProperty) command()      {}
func (SetStateProperty) command() {}
func (AddState) command()         {}
func (RenameState) command()      {}
func (DeleteState) command()      {}
func (CreateMarker) command()     {}
func (RevertMarker) command()     {}
func (DeleteMarker) command()     {}

// List is an ordered change list.
type List []Command

// wireCommand is the dict shape commands are exchanged and stored in.
type wireCommand struct {
	Cmd           Kind            `json:"cmd"`
	PropertyName  string          `json:"property_name,omitempty"`
	StateName     string          `json:"state_name,omitempty"`
	OldStateName  string          `json:"old_state_name,omitempty"`
	NewStateName  string          `json:"new_state_name,omitempty"`
	NewValue      json.RawMessage `json:"new_value,omitempty"`
	OldValue      json.RawMessage `json:"old_value,omitempty"`
	Title         string          `json:"title,omitempty"`
	Category      string          `json:"category,omitempty"`
	VersionNumber int64           `json:"version_number,omitempty"`
}

func toWire(c Command) wireCommand {
	w := wireCommand{Cmd: c.Kind()}
	switch c := c.(type) {
	case SetProperty:
		w.PropertyName, w.NewValue, w.OldValue = c.PropertyName, c.NewValue, c.OldValue
	case SetStateProperty:
		w.StateName, w.PropertyName, w.NewValue, w.OldValue = c.StateName, c.PropertyName, c.NewValue, c.OldValue
	case AddState:
		w.StateName = c.StateName
	case RenameState:
		w.OldStateName, w.NewStateName = c.OldStateName, c.NewStateName
	case DeleteState:
		w.StateName = c.StateName
	case CreateMarker:
		w.Title, w.Category = c.Title, c.Category
	case RevertMarker:
		w.VersionNumber = c.VersionNumber
	case DeleteMarker:
	}
	return w
}

func fromWire(w wireCommand) (Command, error) {
	switch w.Cmd {
	case KindEditExplorationProperty:
		return SetProperty{PropertyName: w.PropertyName, NewValue: w.NewValue, OldValue: w.OldValue}, nil
	case KindEditStateProperty:
		return SetStateProperty{StateName: w.StateName, PropertyName: w.PropertyName, NewValue: w.NewValue, OldValue: w.OldValue}, nil
	case KindAddState:
		return AddState{StateName: w.StateName}, nil
	case KindRenameState:
		return RenameState{OldStateName: w.OldStateName, NewStateName: w.NewStateName}, nil
	case KindDeleteState:
		return DeleteState{StateName: w.StateName}, nil
	case KindCreateNew:
		return CreateMarker{Title: w.Title, Category: w.Category}, nil
	case KindRevert:
		return RevertMarker{VersionNumber: w.VersionNumber}, nil
	case KindDeleteExploration:
		return DeleteMarker{}, nil
	}

	return nil, &exploration.ValidationError{Msg: fmt.Sprintf("Invalid change command: %q", w.Cmd)}
}

func (l List) MarshalJSON() ([]byte, error) {
	wire := make([]wireCommand, 0, len(l))
	for _, c := range l {
		wire = append(wire, toWire(c))
	}
	return json.Marshal(wire)
}

func (l *List) UnmarshalJSON(data []byte) error {
	var wire []wireCommand
	if err := json.Unmarshal(data, &wire); err != nil {
		return &exploration.ValidationError{Msg: fmt.Sprintf("Invalid change list: %v", err)}
	}

	list := make(List, 0, len(wire))
	for _, w := range wire {
		c, err := fromWire(w)
		if err != nil {
			return err
		}
		list = append(list, c)
	}
	*l = list

	return nil
}

// MustValue encodes v for use as a NewValue. It panics when v cannot be
// encoded as JSON.
func MustValue(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
