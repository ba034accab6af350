package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind enumerates the closed set of scalar shapes a summary value can
// take. Everything the indexer emits into a manifest goes through Value, so
// serialization has exactly one code path.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindList
)

// Value is a tagged union over the summary-value variants. The zero value is
// null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
	list []Value
}

func NullValue() Value           { return Value{} }
func IntValue(v int64) Value     { return Value{kind: KindInt, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }
func BoolValue(v bool) Value     { return Value{kind: KindBool, b: v} }
func ListValue(vs []Value) Value { return Value{kind: KindList, list: vs} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) Bool() bool     { return v.b }
func (v Value) List() []Value  { return v.list }

// Text is the canonical printable form, used for bloom-filter hashing.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.Text()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

// MarshalJSON is the single serializer for summary values.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.f, 'g', -1, 64)), nil
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindList:
		out := make([]json.RawMessage, len(v.list))
		for i, e := range v.list {
			raw, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return json.Marshal(out)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// kindRank keeps values of different kinds in a stable total order. Columns
// are homogeneous so mixed-kind comparisons only happen between a value and
// null.
func (v Value) kindRank() int {
	switch v.kind {
	case KindNull:
		return 0
	case KindInt, KindFloat:
		return 1
	case KindString:
		return 2
	case KindBool:
		return 3
	}
	return 4
}

// Less is a strict ordering: a.Less(b) and b.Less(a) both false means equal.
// Nulls sort first.
func (v Value) Less(o Value) bool {
	ra, rb := v.kindRank(), o.kindRank()
	if ra != rb {
		return ra < rb
	}
	switch v.kind {
	case KindNull:
		return false
	case KindInt, KindFloat:
		a, _ := v.numeric()
		b, _ := o.numeric()
		if a != b {
			return a < b
		}
		return v.kind < o.kind
	case KindString:
		return v.s < o.s
	case KindBool:
		return !v.b && o.b
	}
	return false
}
