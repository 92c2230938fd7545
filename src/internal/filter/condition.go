// FILE: logmonitor/src/internal/filter/condition.go
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"logmonitor/src/internal/core"
)

// TimestampLayout is how the timestamp field is rendered for comparison
const TimestampLayout = "Mon Jan 2 15:04:05 2006"

var (
	ErrUnknownField    = errors.New("filter: unknown field")
	ErrUnknownOperator = errors.New("filter: unknown operator")
	ErrUnknownJuncture = errors.New("filter: unknown juncture")
	ErrBadOperand      = errors.New("filter: invalid operand")
)

// Field selects the message attribute a condition inspects
type Field int

const (
	FieldSeverity Field = iota
	FieldTimestamp
	FieldPid
	FieldExePath
	FieldMachine
	FieldModule
	FieldChannel
	FieldMessage
)

var fieldNames = []string{"severity", "timestamp", "pid", "exepath", "machine", "module", "channel", "message"}

func (f Field) String() string {
	if f >= 0 && int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps a document name to a Field
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Operator compares a field value with an operand
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpNotContains
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
)

var operatorNames = []string{"equals", "not_equals", "contains", "not_contains", "gt", "gte", "ls", "lte"}

func (o Operator) String() string {
	if o >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("operator(%d)", int(o))
}

// ParseOperator maps a document name to an Operator
func ParseOperator(name string) (Operator, error) {
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
}

// Juncture combines condition results
type Juncture int

const (
	JunctureAnd Juncture = iota
	JunctureOr
)

func (j Juncture) String() string {
	switch j {
	case JunctureAnd:
		return "and"
	case JunctureOr:
		return "or"
	default:
		return fmt.Sprintf("juncture(%d)", int(j))
	}
}

// ParseJuncture maps a document name to a Juncture
func ParseJuncture(name string) (Juncture, error) {
	switch name {
	case "and":
		return JunctureAnd, nil
	case "or":
		return JunctureOr, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJuncture, name)
}

type operandKind uint8

const (
	operandInt operandKind = iota
	operandText
)

// Operand is either an integer or a text value
type Operand struct {
	kind operandKind
	i    int64
	s    string
}

// IntOperand returns an integer operand
func IntOperand(v int64) Operand { return Operand{kind: operandInt, i: v} }

// TextOperand returns a text operand
func TextOperand(v string) Operand { return Operand{kind: operandText, s: v} }

func (o Operand) IsInt() bool { return o.kind == operandInt }

// Int returns the integer value; a text operand yields 0
func (o Operand) Int() int64 {
	if o.kind == operandInt {
		return o.i
	}
	return 0
}

// Text returns the text value; an integer operand is rendered in decimal
func (o Operand) Text() string {
	if o.kind == operandText {
		return o.s
	}
	return strconv.FormatInt(o.i, 10)
}

// Value returns the operand as int64 or string
func (o Operand) Value() any {
	if o.kind == operandInt {
		return o.i
	}
	return o.s
}

func (o Operand) String() string {
	if o.kind == operandText {
		return strconv.Quote(o.s)
	}
	return o.Text()
}

// Condition is one field/operator/operand predicate
type Condition struct {
	Field    Field
	Operator Operator
	Operand  Operand
}

// NewCondition builds a condition and normalizes the operand for the field:
// severity takes an integer (numbers or severity names), other fields take text.
func NewCondition(field Field, op Operator, operand Operand) (Condition, error) {
	if field < FieldSeverity || field > FieldMessage {
		return Condition{}, fmt.Errorf("%w: %d", ErrUnknownField, int(field))
	}
	if op < OpEquals || op > OpLessEqual {
		return Condition{}, fmt.Errorf("%w: %d", ErrUnknownOperator, int(op))
	}

	if field == FieldSeverity {
		if !operand.IsInt() {
			sev, err := core.ParseSeverity(operand.Text())
			if err != nil {
				return Condition{}, fmt.Errorf("%w: %v", ErrBadOperand, err)
			}
			operand = IntOperand(int64(sev))
		}
	} else if operand.IsInt() {
		operand = TextOperand(operand.Text())
	}

	return Condition{Field: field, Operator: op, Operand: operand}, nil
}

// DefaultCondition is "severity equals info"
func DefaultCondition() Condition {
	return Condition{Field: FieldSeverity, Operator: OpEquals, Operand: IntOperand(0)}
}

// Applies evaluates the condition against msg
func (c Condition) Applies(msg *core.LogMessage) bool {
	if c.Field == FieldSeverity && c.Operand.IsInt() {
		return compareInt(c.Operator, int64(msg.Severity), c.Operand.Int())
	}
	return compareText(c.Operator, fieldText(msg, c.Field), c.Operand.Text())
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, c.Operand)
}

func fieldText(msg *core.LogMessage, f Field) string {
	switch f {
	case FieldSeverity:
		return strconv.FormatUint(uint64(msg.Severity), 10)
	case FieldTimestamp:
		return msg.Time().Format(TimestampLayout)
	case FieldPid:
		return strconv.FormatUint(msg.Pid, 10)
	case FieldExePath:
		return msg.ExePath
	case FieldMachine:
		return msg.Machine
	case FieldModule:
		return msg.Module
	case FieldChannel:
		return msg.Channel
	case FieldMessage:
		return msg.Message
	}
	return ""
}

// compareInt treats contains as equals for numeric fields
func compareInt(op Operator, a, b int64) bool {
	switch op {
	case OpEquals, OpContains:
		return a == b
	case OpNotEquals, OpNotContains:
		return a != b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	}
	return false
}

func compareText(op Operator, a, b string) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpContains:
		return strings.Contains(a, b)
	case OpNotContains:
		return !strings.Contains(a, b)
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	}
	return false
}

// Applies combines conditions: AND needs every match (true when empty),
// OR needs any match (false when empty)
func Applies(msg *core.LogMessage, conditions []Condition, juncture Juncture) bool {
	if juncture == JunctureAnd {
		for i := range conditions {
			if !conditions[i].Applies(msg) {
				return false
			}
		}
		return true
	}

	for i := range conditions {
		if conditions[i].Applies(msg) {
			return true
		}
	}
	return false
}

// Filter is a named predicate over messages
type Filter struct {
	Name       string
	Juncture   Juncture
	Conditions []Condition
}

// NewFilter returns an empty OR filter
func NewFilter(name string) *Filter {
	return &Filter{Name: name, Juncture: JunctureOr}
}

// Applies reports whether msg passes the filter
func (f *Filter) Applies(msg *core.LogMessage) bool {
	return Applies(msg, f.Conditions, f.Juncture)
}
