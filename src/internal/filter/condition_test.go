// FILE: logmonitor/src/internal/filter/condition_test.go
package filter

import (
	"testing"
	"time"

	"logmonitor/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCondition(t *testing.T, field Field, op Operator, operand Operand) Condition {
	t.Helper()
	c, err := NewCondition(field, op, operand)
	require.NoError(t, err)
	return c
}

func testMessage() *core.LogMessage {
	return &core.LogMessage{
		Timestamp: time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local).UnixMilli(),
		Severity:  core.SeverityWarning,
		Pid:       1234,
		Machine:   "build-01",
		ExePath:   "/usr/bin/app",
		Module:    "net",
		Channel:   "socket",
		Message:   "connection reset by peer",
	}
}

func TestParseNames(t *testing.T) {
	for i, name := range []string{"severity", "timestamp", "pid", "exepath", "machine", "module", "channel", "message"} {
		f, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, Field(i), f)
		assert.Equal(t, name, f.String())
	}
	for i, name := range []string{"equals", "not_equals", "contains", "not_contains", "gt", "gte", "ls", "lte"} {
		op, err := ParseOperator(name)
		require.NoError(t, err)
		assert.Equal(t, Operator(i), op)
		assert.Equal(t, name, op.String())
	}

	_, err := ParseField("host")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = ParseOperator("lt")
	assert.ErrorIs(t, err, ErrUnknownOperator)
	_, err = ParseJuncture("xor")
	assert.ErrorIs(t, err, ErrUnknownJuncture)
}

func TestNewCondition(t *testing.T) {
	t.Run("SeverityNameBecomesInt", func(t *testing.T) {
		c := mustCondition(t, FieldSeverity, OpEquals, TextOperand("error"))
		assert.True(t, c.Operand.IsInt())
		assert.Equal(t, int64(3), c.Operand.Int())
	})

	t.Run("SeverityDigits", func(t *testing.T) {
		c := mustCondition(t, FieldSeverity, OpEquals, TextOperand("2"))
		assert.Equal(t, int64(2), c.Operand.Int())
	})

	t.Run("BadSeverityText", func(t *testing.T) {
		_, err := NewCondition(FieldSeverity, OpEquals, TextOperand("loud"))
		assert.ErrorIs(t, err, ErrBadOperand)
	})

	t.Run("IntForTextField", func(t *testing.T) {
		c := mustCondition(t, FieldPid, OpEquals, IntOperand(1234))
		assert.False(t, c.Operand.IsInt())
		assert.Equal(t, "1234", c.Operand.Text())
	})

	t.Run("OutOfRangeEnums", func(t *testing.T) {
		_, err := NewCondition(Field(42), OpEquals, IntOperand(0))
		assert.ErrorIs(t, err, ErrUnknownField)
		_, err = NewCondition(FieldModule, Operator(-1), IntOperand(0))
		assert.ErrorIs(t, err, ErrUnknownOperator)
	})

	t.Run("Default", func(t *testing.T) {
		c := DefaultCondition()
		assert.Equal(t, FieldSeverity, c.Field)
		assert.Equal(t, OpEquals, c.Operator)
		assert.Equal(t, int64(0), c.Operand.Int())
	})
}

func TestCondition_Applies(t *testing.T) {
	msg := testMessage()

	testCases := []struct {
		name     string
		field    Field
		op       Operator
		operand  Operand
		expected bool
	}{
		{"SeverityEquals", FieldSeverity, OpEquals, IntOperand(2), true},
		{"SeverityNotEquals", FieldSeverity, OpNotEquals, IntOperand(2), false},
		{"SeverityContainsIsEquals", FieldSeverity, OpContains, IntOperand(2), true},
		{"SeverityNotContainsIsNotEquals", FieldSeverity, OpNotContains, IntOperand(3), true},
		{"SeverityGreater", FieldSeverity, OpGreater, IntOperand(1), true},
		{"SeverityGreaterEqual", FieldSeverity, OpGreaterEqual, IntOperand(2), true},
		{"SeverityLess", FieldSeverity, OpLess, IntOperand(2), false},
		{"SeverityLessEqualEqual", FieldSeverity, OpLessEqual, IntOperand(2), true},
		{"SeverityLessEqualAbove", FieldSeverity, OpLessEqual, IntOperand(3), true},
		{"SeverityLessEqualBelow", FieldSeverity, OpLessEqual, IntOperand(1), false},
		{"ModuleEquals", FieldModule, OpEquals, TextOperand("net"), true},
		{"ModuleEqualsIsExact", FieldModule, OpEquals, TextOperand("ne"), false},
		{"MessageContains", FieldMessage, OpContains, TextOperand("reset"), true},
		{"MessageNotContains", FieldMessage, OpNotContains, TextOperand("reset"), false},
		{"ChannelGreaterLexical", FieldChannel, OpGreater, TextOperand("server"), true},
		{"ChannelLessLexical", FieldChannel, OpLess, TextOperand("server"), false},
		{"ChannelLessEqualText", FieldChannel, OpLessEqual, TextOperand("socket"), true},
		{"PidAsText", FieldPid, OpEquals, TextOperand("1234"), true},
		{"PidLexical", FieldPid, OpLess, TextOperand("2"), true},
		{"Machine", FieldMachine, OpContains, TextOperand("build"), true},
		{"ExePath", FieldExePath, OpEquals, TextOperand("/usr/bin/app"), true},
		{"Timestamp", FieldTimestamp, OpEquals, TextOperand("Tue Mar 5 14:07:09 2024"), true},
		{"TimestampContains", FieldTimestamp, OpContains, TextOperand("2024"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := mustCondition(t, tc.field, tc.op, tc.operand)
			assert.Equal(t, tc.expected, c.Applies(msg))
		})
	}
}

func TestApplies_Juncture(t *testing.T) {
	msg := testMessage()
	conditions := []Condition{
		mustCondition(t, FieldSeverity, OpEquals, IntOperand(int64(core.SeverityError))),
		mustCondition(t, FieldModule, OpEquals, TextOperand("net")),
	}

	assert.False(t, Applies(msg, conditions, JunctureAnd))
	assert.True(t, Applies(msg, conditions, JunctureOr))

	t.Run("EmptyConditions", func(t *testing.T) {
		assert.True(t, Applies(msg, nil, JunctureAnd))
		assert.False(t, Applies(msg, nil, JunctureOr))
	})

	t.Run("Filter", func(t *testing.T) {
		f := NewFilter("net")
		assert.Equal(t, JunctureOr, f.Juncture)
		assert.False(t, f.Applies(msg))

		f.Conditions = conditions
		assert.True(t, f.Applies(msg))
		f.Juncture = JunctureAnd
		assert.False(t, f.Applies(msg))
	})
}

func TestHighlightSet(t *testing.T) {
	red := Color{R: 255}
	blue := Color{B: 255}
	set := &HighlightSet{
		Name: "alerts",
		Highlights: []Highlight{
			{Foreground: &red, Juncture: JunctureOr, Conditions: []Condition{
				mustCondition(t, FieldChannel, OpContains, TextOperand("foo")),
			}},
			{Foreground: &blue, Background: &blue, Juncture: JunctureOr, Conditions: []Condition{
				mustCondition(t, FieldSeverity, OpEquals, IntOperand(int64(core.SeverityError))),
			}},
		},
	}

	t.Run("FirstMatchWins", func(t *testing.T) {
		msg := &core.LogMessage{Channel: "foobar", Severity: core.SeverityError}
		fg, ok := set.Foreground(msg)
		require.True(t, ok)
		assert.Equal(t, red, fg)

		_, ok = set.Background(msg)
		assert.False(t, ok, "first match has no background, later highlights are not consulted")
	})

	t.Run("SecondMatches", func(t *testing.T) {
		msg := &core.LogMessage{Channel: "bar", Severity: core.SeverityError}
		fg, ok := set.Foreground(msg)
		require.True(t, ok)
		assert.Equal(t, blue, fg)
		bg, ok := set.Background(msg)
		require.True(t, ok)
		assert.Equal(t, blue, bg)
	})

	t.Run("NoMatch", func(t *testing.T) {
		msg := &core.LogMessage{Channel: "bar", Severity: core.SeverityInfo}
		_, ok := set.Foreground(msg)
		assert.False(t, ok)
	})

	t.Run("InertHighlight", func(t *testing.T) {
		inert := &HighlightSet{Highlights: []Highlight{{Juncture: JunctureOr}}}
		_, ok := inert.Foreground(&core.LogMessage{})
		assert.False(t, ok)
	})

	t.Run("NilSet", func(t *testing.T) {
		var none *HighlightSet
		_, ok := none.Foreground(&core.LogMessage{})
		assert.False(t, ok)
	})

	assert.Equal(t, "#ff0000", red.Hex())
}
