package value

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Asset pairs a file path from the document with the resource loaded from it.
type Asset[V any] struct {
	Path  string
	Asset V
}

// AssetCodec stores an asset as its path and rebuilds it with load on every
// decode. Decoding may construct context-affined resources, which is why the
// reload worker decodes while holding its execution context.
func AssetCodec[V any](load func(path string) (V, error)) Codec[Asset[V]] {
	return Codec[Asset[V]]{
		Kind:   KindAsset,
		Encode: func(a Asset[V]) cty.Value { return cty.StringVal(a.Path) },
		Decode: func(val cty.Value) (Asset[V], error) {
			path, err := decodeInto[string](KindAsset, val)
			if err != nil {
				return Asset[V]{}, err
			}
			loaded, err := load(path)
			if err != nil {
				return Asset[V]{}, decodeErr(KindAsset, fmt.Errorf("loading %q: %w", path, err))
			}
			return Asset[V]{Path: path, Asset: loaded}, nil
		},
	}
}
