package value

import "github.com/zclconf/go-cty/cty"

// Kind identifies one of the supported value shapes.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindVec2
	KindVec3
	KindVec4
	KindIVec2
	KindIVec3
	KindIVec4
	KindQuat
	KindColor
	KindColorA
	KindFloatList
	KindIntList
	KindAsset
	KindReference
)

var kindNames = [...]string{
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindVec2:      "vec2",
	KindVec3:      "vec3",
	KindVec4:      "vec4",
	KindIVec2:     "ivec2",
	KindIVec3:     "ivec3",
	KindIVec4:     "ivec4",
	KindQuat:      "quat",
	KindColor:     "color",
	KindColorA:    "colora",
	KindFloatList: "float_list",
	KindIntList:   "int_list",
	KindAsset:     "asset",
	KindReference: "reference",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Vec2 is a 2-component float vector.
type Vec2 struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
}

// Vec3 is a 3-component float vector.
type Vec3 struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
	Z float64 `cty:"z"`
}

// Vec4 is a 4-component float vector.
type Vec4 struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
	Z float64 `cty:"z"`
	W float64 `cty:"w"`
}

// IVec2 is a 2-component integer vector.
type IVec2 struct {
	X int `cty:"x"`
	Y int `cty:"y"`
}

// IVec3 is a 3-component integer vector.
type IVec3 struct {
	X int `cty:"x"`
	Y int `cty:"y"`
	Z int `cty:"z"`
}

// IVec4 is a 4-component integer vector.
type IVec4 struct {
	X int `cty:"x"`
	Y int `cty:"y"`
	Z int `cty:"z"`
	W int `cty:"w"`
}

// Quat is a rotation quaternion, scalar part first.
type Quat struct {
	W float64 `cty:"w"`
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
	Z float64 `cty:"z"`
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

// Color is an RGB color with float channels.
type Color struct {
	R float64 `cty:"r"`
	G float64 `cty:"g"`
	B float64 `cty:"b"`
}

// ColorA is an RGBA color with float channels.
type ColorA struct {
	R float64 `cty:"r"`
	G float64 `cty:"g"`
	B float64 `cty:"b"`
	A float64 `cty:"a"`
}

var (
	xy   = []string{"x", "y"}
	xyz  = []string{"x", "y", "z"}
	xyzw = []string{"x", "y", "z", "w"}
	wxyz = []string{"w", "x", "y", "z"}
	rgb  = []string{"r", "g", "b"}
	rgba = []string{"r", "g", "b", "a"}
)

func structCodec[T comparable](kind Kind, encode func(T) cty.Value) Codec[T] {
	return Codec[T]{
		Kind:   kind,
		Encode: encode,
		Decode: func(val cty.Value) (T, error) { return decodeInto[T](kind, val) },
		Equal:  equalComparable[T],
	}
}

var (
	Vec2Codec = structCodec(KindVec2, func(v Vec2) cty.Value {
		return components(xy, v.X, v.Y)
	})
	Vec3Codec = structCodec(KindVec3, func(v Vec3) cty.Value {
		return components(xyz, v.X, v.Y, v.Z)
	})
	Vec4Codec = structCodec(KindVec4, func(v Vec4) cty.Value {
		return components(xyzw, v.X, v.Y, v.Z, v.W)
	})
	IVec2Codec = structCodec(KindIVec2, func(v IVec2) cty.Value {
		return components(xy, float64(v.X), float64(v.Y))
	})
	IVec3Codec = structCodec(KindIVec3, func(v IVec3) cty.Value {
		return components(xyz, float64(v.X), float64(v.Y), float64(v.Z))
	})
	IVec4Codec = structCodec(KindIVec4, func(v IVec4) cty.Value {
		return components(xyzw, float64(v.X), float64(v.Y), float64(v.Z), float64(v.W))
	})
	QuatCodec = structCodec(KindQuat, func(v Quat) cty.Value {
		return components(wxyz, v.W, v.X, v.Y, v.Z)
	})
	ColorCodec = structCodec(KindColor, func(v Color) cty.Value {
		return components(rgb, v.R, v.G, v.B)
	})
	ColorACodec = structCodec(KindColorA, func(v ColorA) cty.Value {
		return components(rgba, v.R, v.G, v.B, v.A)
	})
)
