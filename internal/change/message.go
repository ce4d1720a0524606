package change

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/emrgen/exploration/internal/exploration"
)

// Message derives a terse commit message describing the change list. It
// returns an empty string for an empty list.
func Message(list List) string {
	var (
		properties []string
		parts      []string
		edited     []string
	)

	for _, c := range list {
		switch c := c.(type) {
		case SetProperty:
			properties = appendUnique(properties, c.PropertyName)
		case SetStateProperty:
			edited = appendUnique(edited, c.StateName)
		case AddState:
			parts = append(parts, "Added state: "+c.StateName)
		case RenameState:
			parts = append(parts, fmt.Sprintf("Renamed state: %s to %s", c.OldStateName, c.NewStateName))
		case DeleteState:
			parts = append(parts, "Deleted state: "+c.StateName)
		case CreateMarker:
			parts = append(parts, CreateMessage(c.Title))
		case RevertMarker:
			parts = append(parts, RevertMessage(c.VersionNumber))
		case DeleteMarker:
			parts = append(parts, DeleteMessage)
		}
	}

	if len(edited) != 0 {
		parts = append(parts, "Edited state: "+strings.Join(edited, ", "))
	}
	if len(properties) != 0 {
		parts = append([]string{fmt.Sprintf("Edited exploration properties: %s.", strings.Join(properties, ", "))}, parts...)
	}

	return strings.Join(parts, " ")
}

const DeleteMessage = "Exploration deleted."

func CreateMessage(title string) string {
	return fmt.Sprintf("New exploration created with title '%s'.", title)
}

func RevertMessage(version int64) string {
	return fmt.Sprintf("Reverted exploration to version %d", version)
}

// PropertyChange holds the value of an exploration property before and after
// a change list.
type PropertyChange struct {
	OldValue any `json:"old_value"`
	NewValue any `json:"new_value"`
}

// StateChanges lists structural and property edits of states. Renamed maps
// the name a state had before the change list to its final name.
type StateChanges struct {
	Added   []string            `json:"added_states"`
	Deleted []string            `json:"deleted_states"`
	Renamed map[string]string   `json:"renamed_states"`
	Changed map[string][]string `json:"changed_states"`
}

// Summary describes the net effect of a change list on an exploration.
type Summary struct {
	ExplorationPropertyChanges map[string]PropertyChange `json:"exploration_property_changes"`
	StateChanges               StateChanges              `json:"state_property_changes"`
}

// Describe summarizes the net effect of applying list to base. States added
// and later renamed are reported as added under their final name; states
// added and later deleted are not reported at all.
func Describe(base *exploration.Exploration, list List) Summary {
	s := Summary{
		ExplorationPropertyChanges: map[string]PropertyChange{},
		StateChanges: StateChanges{
			Added:   []string{},
			Deleted: []string{},
			Renamed: map[string]string{},
			Changed: map[string][]string{},
		},
	}
	sc := &s.StateChanges

	original := func(current string) string {
		for from, to := range sc.Renamed {
			if to == current {
				return from
			}
		}
		return current
	}

	for _, c := range list {
		switch c := c.(type) {
		case SetProperty:
			pc, ok := s.ExplorationPropertyChanges[c.PropertyName]
			if !ok {
				pc.OldValue = propertyValue(base, c.PropertyName)
			}
			pc.NewValue = rawValue(c.NewValue)
			s.ExplorationPropertyChanges[c.PropertyName] = pc
		case SetStateProperty:
			if slices.Contains(sc.Added, c.StateName) {
				continue
			}
			sc.Changed[c.StateName] = appendUnique(sc.Changed[c.StateName], c.PropertyName)
		case AddState:
			sc.Added = append(sc.Added, c.StateName)
		case RenameState:
			if i := slices.Index(sc.Added, c.OldStateName); i >= 0 {
				sc.Added[i] = c.NewStateName
				continue
			}
			sc.Renamed[original(c.OldStateName)] = c.NewStateName
			if props, ok := sc.Changed[c.OldStateName]; ok {
				delete(sc.Changed, c.OldStateName)
				sc.Changed[c.NewStateName] = props
			}
		case DeleteState:
			if i := slices.Index(sc.Added, c.StateName); i >= 0 {
				sc.Added = append(sc.Added[:i], sc.Added[i+1:]...)
				continue
			}
			from := original(c.StateName)
			delete(sc.Renamed, from)
			delete(sc.Changed, c.StateName)
			sc.Deleted = append(sc.Deleted, from)
		}
	}

	return s
}

func propertyValue(e *exploration.Exploration, name string) any {
	if e == nil {
		return nil
	}
	switch name {
	case PropertyTitle:
		return e.Title
	case PropertyCategory:
		return e.Category
	case PropertyObjective:
		return e.Objective
	case PropertyLanguageCode:
		return e.LanguageCode
	case PropertyTags:
		return e.Tags
	case PropertyBlurb:
		return e.Blurb
	case PropertyAuthorNotes:
		return e.AuthorNotes
	case PropertyDefaultSkin:
		return e.DefaultSkin
	case PropertyInitStateName:
		return e.InitStateName
	case PropertyParamSpecs:
		return e.ParamSpecs
	case PropertyParamChanges:
		return e.ParamChanges
	}
	return nil
}

func rawValue(raw json.RawMessage) any {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
