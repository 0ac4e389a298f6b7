// Package coercion converts stored textual values into typed values
// according to a config item's declared value type.
package coercion

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBlob:
		return "blob"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a resolved configuration value. Exactly one payload field is
// meaningful, selected by Kind.
type Value struct {
	kind  Kind
	text  string
	i     int64
	f     float64
	bytes []byte
}

func Text(s string) Value { return Value{kind: KindText, text: s} }

func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func Blob(b []byte) Value { return Value{kind: KindBlob, bytes: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Text() string { return v.text }

func (v Value) Integer() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Bytes() []byte { return v.bytes }

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBlob:
		return v.bytes
	default:
		return v.text
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBlob:
		return string(v.bytes)
	default:
		return v.text
	}
}

// MarshalJSON renders numbers as JSON numbers and text and blobs as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBlob:
		return json.Marshal(string(v.bytes))
	default:
		return json.Marshal(v.text)
	}
}

// Coerce converts raw according to the declared value type.
// Unparsable numbers fall back to the original text.
func Coerce(raw string, valueType model.ValueType) Value {
	switch valueType {
	case model.ValueTypeNumber:
		return ParseNumber(raw)
	case model.ValueTypeBlob:
		return Blob([]byte(raw))
	default:
		return Text(raw)
	}
}

// ParseNumber yields an Integer when raw has no fractional part, a Float
// otherwise, and Text(raw) when raw is not a finite number.
func ParseNumber(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Integer(i)
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Text(raw)
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Integer(int64(f))
	}
	return Float(f)
}
