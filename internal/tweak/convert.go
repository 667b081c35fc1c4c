package tweak

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// toWire converts a document leaf into plain Go values for the socket.io
// payload.
func toWire(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			w, err := toWire(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = w
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			w, err := toWire(v)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported leaf type %s", ty.FriendlyName())
}

// fromWire converts a decoded JSON value into a document leaf.
func fromWire(data any) (cty.Value, error) {
	switch v := data.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case bool:
		return cty.BoolVal(v), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(v))
		for key, elem := range v {
			c, err := fromWire(elem)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key] = c
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		elems := make([]cty.Value, 0, len(v))
		for _, elem := range v {
			c, err := fromWire(elem)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, c)
		}
		return cty.TupleVal(elems), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported type for conversion to a document leaf: %T", data)
}
