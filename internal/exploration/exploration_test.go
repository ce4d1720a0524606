package exploration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsValid(t *testing.T) {
	e := New("exp-1", "A title", "A category")
	assert.NoError(t, e.Validate(false))

	// strict validation needs an objective
	assert.Error(t, e.Validate(true))
	e.Objective = "The objective"
	assert.NoError(t, e.Validate(true))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Exploration)
		errMsg string
	}{
		{
			name:   "empty title",
			mutate: func(e *Exploration) { e.Title = "" },
			errMsg: "between 1 and 50 characters",
		},
		{
			name:   "empty category",
			mutate: func(e *Exploration) { e.Category = "" },
			errMsg: "between 1 and 50 characters",
		},
		{
			name:   "unknown language",
			mutate: func(e *Exploration) { e.LanguageCode = "xx" },
			errMsg: "Invalid language_code",
		},
		{
			name:   "duplicate tags",
			mutate: func(e *Exploration) { e.Tags = []string{"math", "math"} },
			errMsg: "duplicate",
		},
		{
			name:   "uppercase tag",
			mutate: func(e *Exploration) { e.Tags = []string{"Math"} },
			errMsg: "lowercase letters",
		},
		{
			name:   "missing init state",
			mutate: func(e *Exploration) { e.InitStateName = "nope" },
			errMsg: "initial state name nope",
		},
		{
			name: "invalid destination",
			mutate: func(e *Exploration) {
				e.States[DefaultInitStateName].Interaction.Handlers[0].RuleSpecs[0].Dest = "INVALID"
			},
			errMsg: "The destination INVALID is not a valid state",
		},
		{
			name: "last rule not default",
			mutate: func(e *Exploration) {
				e.States[DefaultInitStateName].Interaction.Handlers[0].RuleSpecs[0].Definition.RuleType = AtomicRuleType
			},
			errMsg: "the last rule should be a default rule",
		},
		{
			name: "unknown parameter",
			mutate: func(e *Exploration) {
				e.ParamChanges = []ParamChange{{Name: "myParam", GeneratorID: "Copier"}}
			},
			errMsg: "The parameter with name 'myParam'",
		},
		{
			name: "unknown generator",
			mutate: func(e *Exploration) {
				e.ParamSpecs = map[string]ParamSpec{"myParam": {ObjType: "Int"}}
				e.ParamChanges = []ParamChange{{Name: "myParam", GeneratorID: "fake"}}
			},
			errMsg: "Invalid generator id fake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("exp-1", "A title", "A category")
			tt.mutate(e)

			err := e.Validate(false)
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRenameState_RewritesDestinations(t *testing.T) {
	e := New("exp-1", "A title", "A category")
	require.NoError(t, e.AddStates([]string{"Second"}))
	e.States["Second"].Interaction.Handlers[0].RuleSpecs[0].Dest = DefaultInitStateName

	require.NoError(t, e.RenameState(DefaultInitStateName, "¡Hola! αβγ"))

	assert.Equal(t, "¡Hola! αβγ", e.InitStateName)
	assert.NotContains(t, e.States, DefaultInitStateName)
	assert.Equal(t, "¡Hola! αβγ", e.States["Second"].Interaction.Handlers[0].RuleSpecs[0].Dest)
	assert.Equal(t, "¡Hola! αβγ", e.States["¡Hola! αβγ"].Interaction.Handlers[0].RuleSpecs[0].Dest)
	assert.NoError(t, e.Validate(false))
}

func TestDeleteState(t *testing.T) {
	e := New("exp-1", "A title", "A category")
	require.NoError(t, e.AddStates([]string{"Second", "Third"}))
	e.States[DefaultInitStateName].Interaction.Handlers[0].RuleSpecs[0].Dest = "Second"

	err := e.DeleteState("invalid_state_name")
	assert.ErrorContains(t, err, "does not exist")

	err = e.DeleteState("Second")
	assert.ErrorContains(t, err, "still referenced")
	assert.Contains(t, e.States, "Second")

	err = e.DeleteState(DefaultInitStateName)
	assert.ErrorContains(t, err, "Cannot delete initial state")

	assert.NoError(t, e.DeleteState("Third"))
	assert.Len(t, e.States, 2)
}

func TestEncode_Deterministic(t *testing.T) {
	e := New("exp-1", "A title", "A category")
	require.NoError(t, e.AddStates([]string{"b", "a", "c"}))

	first, err := e.Encode()
	require.NoError(t, err)

	clone, err := e.Clone()
	require.NoError(t, err)
	second, err := clone.Encode()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCoerceRuleInputs(t *testing.T) {
	tests := []struct {
		name        string
		interaction string
		rule        string
		inputs      map[string]any
		want        map[string]any
		errMsg      string
	}{
		{
			name:        "integer string",
			interaction: "MultipleChoiceInput",
			rule:        "Equals",
			inputs:      map[string]any{"x": "2"},
			want:        map[string]any{"x": int64(2)},
		},
		{
			name:        "float integral",
			interaction: "MultipleChoiceInput",
			rule:        "Equals",
			inputs:      map[string]any{"x": float64(0)},
			want:        map[string]any{"x": int64(0)},
		},
		{
			name:        "bad literal",
			interaction: "MultipleChoiceInput",
			rule:        "Equals",
			inputs:      map[string]any{"x": "abc"},
			errMsg:      "invalid literal for int()",
		},
		{
			name:        "extra input",
			interaction: "MultipleChoiceInput",
			rule:        "Equals",
			inputs:      map[string]any{"x": 1, "y": 2},
			errMsg:      "should conform to schema",
		},
		{
			name:        "missing input",
			interaction: "NumericInput",
			rule:        "IsInclusivelyBetween",
			inputs:      map[string]any{"a": 1},
			errMsg:      "missing input b",
		},
		{
			name:        "normalized string",
			interaction: "TextInput",
			rule:        "Equals",
			inputs:      map[string]any{"x": "  hello   world "},
			want:        map[string]any{"x": "hello world"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceRuleInputs(tt.interaction, tt.rule, tt.inputs)
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatesToYAML(t *testing.T) {
	e := New("exp-1", "A title", "A category")
	require.NoError(t, e.AddStates([]string{"New state"}))
	e.States["New state"].UpdateInteractionID("TextInput")

	out, err := e.StatesToYAML()
	require.NoError(t, err)
	require.Len(t, out, 2)

	for name, data := range out {
		state, err := StateFromYAML([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, e.States[name].Interaction.ID, state.Interaction.ID)
		assert.Equal(t, e.States[name].Interaction.Handlers[0].RuleSpecs[0].Dest, state.Interaction.Handlers[0].RuleSpecs[0].Dest)
	}

	doc, err := e.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(doc), "init_state_name: First State")
	assert.Contains(t, string(doc), "placeholder:")
}
