package value

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrDecode is returned when a document leaf cannot be decoded into a value.
var ErrDecode = errors.New("cannot decode document leaf")

// Codec converts between a Go value and its document leaf.
type Codec[T any] struct {
	Kind   Kind
	Encode func(T) cty.Value
	Decode func(cty.Value) (T, error)
	// Equal reports whether two values are the same. A nil Equal means every
	// Set notifies subscribers.
	Equal func(a, b T) bool
}

func decodeErr(kind Kind, err error) error {
	return fmt.Errorf("%w as %s: %v", ErrDecode, kind, err)
}

func equalComparable[T comparable](a, b T) bool { return a == b }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// decodeInto converts val to the cty type implied by *target and decodes it.
func decodeInto[T any](kind Kind, val cty.Value) (T, error) {
	var out T
	if val.IsNull() || !val.IsKnown() {
		return out, decodeErr(kind, errors.New("value is null"))
	}
	ty, err := gocty.ImpliedType(out)
	if err != nil {
		return out, decodeErr(kind, err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return out, decodeErr(kind, err)
	}
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return out, decodeErr(kind, err)
	}
	return out, nil
}

// components builds a leaf whose attributes are string-encoded numbers.
func components(names []string, values ...float64) cty.Value {
	attrs := make(map[string]cty.Value, len(names))
	for i, name := range names {
		attrs[name] = cty.StringVal(formatFloat(values[i]))
	}
	return cty.ObjectVal(attrs)
}

// BoolCodec encodes booleans as "true"/"false".
var BoolCodec = Codec[bool]{
	Kind:   KindBool,
	Encode: func(v bool) cty.Value { return cty.StringVal(strconv.FormatBool(v)) },
	Decode: func(val cty.Value) (bool, error) { return decodeInto[bool](KindBool, val) },
	Equal:  equalComparable[bool],
}

// IntCodec encodes integers as decimal strings.
var IntCodec = Codec[int]{
	Kind:   KindInt,
	Encode: func(v int) cty.Value { return cty.StringVal(strconv.Itoa(v)) },
	Decode: func(val cty.Value) (int, error) { return decodeInto[int](KindInt, val) },
	Equal:  equalComparable[int],
}

// FloatCodec encodes floats using the shortest round-tripping representation.
var FloatCodec = Codec[float64]{
	Kind:   KindFloat,
	Encode: func(v float64) cty.Value { return cty.StringVal(formatFloat(v)) },
	Decode: func(val cty.Value) (float64, error) { return decodeInto[float64](KindFloat, val) },
	Equal:  equalComparable[float64],
}

// StringCodec stores text verbatim.
var StringCodec = Codec[string]{
	Kind:   KindString,
	Encode: cty.StringVal,
	Decode: func(val cty.Value) (string, error) { return decodeInto[string](KindString, val) },
	Equal:  equalComparable[string],
}

// FloatListCodec stores a variable-length sequence as one whitespace-separated
// string.
var FloatListCodec = Codec[[]float64]{
	Kind: KindFloatList,
	Encode: func(v []float64) cty.Value {
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = formatFloat(f)
		}
		return cty.StringVal(strings.Join(parts, " "))
	},
	Decode: func(val cty.Value) ([]float64, error) {
		return decodeList(KindFloatList, val, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
	},
	Equal: slices.Equal[[]float64],
}

// IntListCodec is FloatListCodec for integers.
var IntListCodec = Codec[[]int]{
	Kind: KindIntList,
	Encode: func(v []int) cty.Value {
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return cty.StringVal(strings.Join(parts, " "))
	},
	Decode: func(val cty.Value) ([]int, error) {
		return decodeList(KindIntList, val, strconv.Atoi)
	},
	Equal: slices.Equal[[]int],
}

// decodeList reads either a whitespace-separated string, stopping at the
// first token that does not parse, or a native array.
func decodeList[E any](kind Kind, val cty.Value, parse func(string) (E, error)) ([]E, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, decodeErr(kind, errors.New("value is null"))
	}
	ty := val.Type()
	if ty.IsTupleType() || ty.IsListType() {
		return decodeInto[[]E](kind, val)
	}

	s, err := convert.Convert(val, cty.String)
	if err != nil {
		return nil, decodeErr(kind, err)
	}
	out := []E{}
	for _, field := range strings.Fields(s.AsString()) {
		e, err := parse(field)
		if err != nil {
			break
		}
		out = append(out, e)
	}
	return out, nil
}
