// FILE: logmonitor/src/internal/filter/document.go
package filter

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/valyala/fastjson"
)

// ErrMalformedDocument wraps every structural document error
var ErrMalformedDocument = errors.New("filter: malformed document")

type conditionDoc struct {
	Field    string `toml:"field"`
	Operator string `toml:"operator"`
	Operand  any    `toml:"operand"`
}

type filterDoc struct {
	Name       string         `toml:"name"`
	Juncture   string         `toml:"juncture"`
	Conditions []conditionDoc `toml:"conditions"`
}

type highlightDoc struct {
	Juncture   string         `toml:"juncture"`
	Foreground []int64        `toml:"foreground,omitempty"`
	Background []int64        `toml:"background,omitempty"`
	Conditions []conditionDoc `toml:"conditions"`
}

type highlightSetDoc struct {
	Name       string         `toml:"name"`
	Highlights []highlightDoc `toml:"highlights"`
}

var jsonParsers fastjson.ParserPool

// isJSON detects documents written by the desktop tool
func isJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// MarshalFilter encodes f as a TOML document
func MarshalFilter(f *Filter) ([]byte, error) {
	doc := filterDoc{
		Name:       f.Name,
		Juncture:   f.Juncture.String(),
		Conditions: conditionsToDoc(f.Conditions),
	}
	return toml.Marshal(doc)
}

// UnmarshalFilter decodes a TOML or legacy JSON filter document.
// Any unknown enum name fails the whole document.
func UnmarshalFilter(data []byte) (*Filter, error) {
	var doc filterDoc
	if isJSON(data) {
		var err error
		if doc, err = decodeJSON(data, filterDocFromJSON); err != nil {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc.toFilter()
}

// MarshalHighlightSet encodes s as a TOML document
func MarshalHighlightSet(s *HighlightSet) ([]byte, error) {
	doc := highlightSetDoc{Name: s.Name}
	for _, h := range s.Highlights {
		hd := highlightDoc{
			Juncture:   h.Juncture.String(),
			Conditions: conditionsToDoc(h.Conditions),
		}
		if h.Foreground != nil {
			hd.Foreground = colorToDoc(*h.Foreground)
		}
		if h.Background != nil {
			hd.Background = colorToDoc(*h.Background)
		}
		doc.Highlights = append(doc.Highlights, hd)
	}
	return toml.Marshal(doc)
}

// UnmarshalHighlightSet decodes a TOML or legacy JSON highlight document
func UnmarshalHighlightSet(data []byte) (*HighlightSet, error) {
	var doc highlightSetDoc
	if isJSON(data) {
		var err error
		if doc, err = decodeJSON(data, highlightSetDocFromJSON); err != nil {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc.toHighlightSet()
}

func (d filterDoc) toFilter() (*Filter, error) {
	juncture, err := ParseJuncture(d.Juncture)
	if err != nil {
		return nil, err
	}
	conditions, err := conditionsFromDoc(d.Conditions)
	if err != nil {
		return nil, err
	}
	return &Filter{Name: d.Name, Juncture: juncture, Conditions: conditions}, nil
}

func (d highlightSetDoc) toHighlightSet() (*HighlightSet, error) {
	set := &HighlightSet{Name: d.Name}
	for i, hd := range d.Highlights {
		juncture, err := ParseJuncture(hd.Juncture)
		if err != nil {
			return nil, fmt.Errorf("highlight %d: %w", i, err)
		}
		conditions, err := conditionsFromDoc(hd.Conditions)
		if err != nil {
			return nil, fmt.Errorf("highlight %d: %w", i, err)
		}
		h := Highlight{Juncture: juncture, Conditions: conditions}
		if hd.Foreground != nil {
			c, err := colorFromDoc(hd.Foreground)
			if err != nil {
				return nil, fmt.Errorf("highlight %d foreground: %w", i, err)
			}
			h.Foreground = &c
		}
		if hd.Background != nil {
			c, err := colorFromDoc(hd.Background)
			if err != nil {
				return nil, fmt.Errorf("highlight %d background: %w", i, err)
			}
			h.Background = &c
		}
		set.Highlights = append(set.Highlights, h)
	}
	return set, nil
}

func conditionsToDoc(conditions []Condition) []conditionDoc {
	out := make([]conditionDoc, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, conditionDoc{
			Field:    c.Field.String(),
			Operator: c.Operator.String(),
			Operand:  c.Operand.Value(),
		})
	}
	return out
}

func conditionsFromDoc(docs []conditionDoc) ([]Condition, error) {
	out := make([]Condition, 0, len(docs))
	for i, d := range docs {
		field, err := ParseField(d.Field)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		op, err := ParseOperator(d.Operator)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		operand, err := operandFromDoc(d.Operand)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		c, err := NewCondition(field, op, operand)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func operandFromDoc(v any) (Operand, error) {
	switch x := v.(type) {
	case nil:
		return IntOperand(0), nil
	case int64:
		return IntOperand(x), nil
	case int:
		return IntOperand(int64(x)), nil
	case float64:
		if x != math.Trunc(x) {
			return TextOperand(fmt.Sprint(x)), nil
		}
		return IntOperand(int64(x)), nil
	case string:
		return TextOperand(x), nil
	case bool:
		if x {
			return IntOperand(1), nil
		}
		return IntOperand(0), nil
	default:
		return Operand{}, fmt.Errorf("%w: unsupported operand type %T", ErrBadOperand, v)
	}
}

func colorToDoc(c Color) []int64 {
	return []int64{int64(c.R), int64(c.G), int64(c.B)}
}

func colorFromDoc(rgb []int64) (Color, error) {
	if len(rgb) != 3 {
		return Color{}, fmt.Errorf("%w: color needs 3 components, got %d", ErrMalformedDocument, len(rgb))
	}
	for _, v := range rgb {
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: color component %d out of range", ErrMalformedDocument, v)
		}
	}
	return Color{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}, nil
}

// decodeJSON runs fn on the parsed document while the pooled parser is held
func decodeJSON[T any](data []byte, fn func(*fastjson.Value) (T, error)) (T, error) {
	var zero T
	p := jsonParsers.Get()
	defer jsonParsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if v.Type() != fastjson.TypeObject {
		return zero, fmt.Errorf("%w: top level is not an object", ErrMalformedDocument)
	}
	return fn(v)
}

func filterDocFromJSON(v *fastjson.Value) (filterDoc, error) {
	doc := filterDoc{
		Name:     string(v.GetStringBytes("name")),
		Juncture: string(v.GetStringBytes("juncture")),
	}
	conditions, err := conditionsFromJSON(v.GetArray("conditions"))
	if err != nil {
		return filterDoc{}, err
	}
	doc.Conditions = conditions
	return doc, nil
}

func highlightSetDocFromJSON(v *fastjson.Value) (highlightSetDoc, error) {
	doc := highlightSetDoc{Name: string(v.GetStringBytes("name"))}
	for i, hv := range v.GetArray("highlights") {
		hd := highlightDoc{Juncture: string(hv.GetStringBytes("juncture"))}
		var err error
		if hv.Exists("foreground") {
			if hd.Foreground, err = intsFromJSON(hv.Get("foreground")); err != nil {
				return highlightSetDoc{}, fmt.Errorf("highlight %d foreground: %w", i, err)
			}
		}
		if hv.Exists("background") {
			if hd.Background, err = intsFromJSON(hv.Get("background")); err != nil {
				return highlightSetDoc{}, fmt.Errorf("highlight %d background: %w", i, err)
			}
		}
		if hd.Conditions, err = conditionsFromJSON(hv.GetArray("conditions")); err != nil {
			return highlightSetDoc{}, fmt.Errorf("highlight %d: %w", i, err)
		}
		doc.Highlights = append(doc.Highlights, hd)
	}
	return doc, nil
}

func conditionsFromJSON(values []*fastjson.Value) ([]conditionDoc, error) {
	out := make([]conditionDoc, 0, len(values))
	for i, cv := range values {
		if cv.Type() != fastjson.TypeObject {
			return nil, fmt.Errorf("%w: condition %d is not an object", ErrMalformedDocument, i)
		}
		cd := conditionDoc{
			Field:    string(cv.GetStringBytes("field")),
			Operator: string(cv.GetStringBytes("operator")),
		}
		if ov := cv.Get("operand"); ov != nil {
			switch ov.Type() {
			case fastjson.TypeNumber:
				cd.Operand = ov.GetFloat64()
			case fastjson.TypeString:
				cd.Operand = string(ov.GetStringBytes())
			case fastjson.TypeTrue:
				cd.Operand = true
			case fastjson.TypeFalse:
				cd.Operand = false
			case fastjson.TypeNull:
			default:
				return nil, fmt.Errorf("%w: condition %d operand has type %s", ErrMalformedDocument, i, ov.Type())
			}
		}
		out = append(out, cd)
	}
	return out, nil
}

func intsFromJSON(v *fastjson.Value) ([]int64, error) {
	arr, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	out := make([]int64, 0, len(arr))
	for _, e := range arr {
		n, err := e.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		out = append(out, n)
	}
	return out, nil
}
