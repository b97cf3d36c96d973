package checksum

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Checksummer is implemented by values that carry a precomputed fingerprint.
// It takes priority over every structural rule.
type Checksummer interface {
	Checksum() Fingerprint
}

// CodeIdentity is implemented by function values that can cross the
// fingerprint boundary. CodeID must be stable across processes; Captured
// returns the values the function closes over, in a fixed order.
type CodeIdentity interface {
	CodeID() []byte
	Captured() []any
}

// PartialApplication is implemented by functions with bound arguments.
type PartialApplication interface {
	PartialFunc() any
	PartialArgs() []any
	PartialKeywords() map[string]any
}

// RawBuffer is implemented by numeric containers that expose their backing
// buffer. The bytes are hashed as-is; shape and element type are not.
type RawBuffer interface {
	RawBytes() []byte
}

// Descriptor is a sealed interface over the classified, hashable forms of a
// value. Only the types in this file implement it.
type Descriptor interface {
	descriptor() // Sealed
}

// Explicit carries a precomputed fingerprint.
type Explicit struct {
	Sum Fingerprint
}

func (Explicit) descriptor() {}

// None is the descriptor of a nil value. It may also be passed to Sum directly.
type None struct{}

func (None) descriptor() {}

// Bytes is appended verbatim.
type Bytes []byte

func (Bytes) descriptor() {}

// Text is appended as UTF-8.
type Text string

func (Text) descriptor() {}

// Closure is a function identified by its code and its captured values.
type Closure struct {
	Code     []byte
	Captured []any
}

func (Closure) descriptor() {}

// Partial is a function with bound positional and keyword arguments.
// Keyword order never matters; positional order always does.
type Partial struct {
	Func   any
	Args   []any
	Kwargs map[string]any
}

func (Partial) descriptor() {}

// Array is a raw little-endian numeric buffer.
type Array []byte

func (Array) descriptor() {}

// Scalar is the textual form of a number or bool.
type Scalar string

func (Scalar) descriptor() {}

// Opaque is the textual representation of an unrecognized value.
type Opaque string

func (Opaque) descriptor() {}

// noneLiteral is appended for nil values.
const noneLiteral = "None"

// Classify maps an arbitrary value onto its Descriptor. It never fails.
func Classify(v any) Descriptor {
	if v == nil || isNilPointer(v) {
		return None{}
	}

	if d, ok := v.(Descriptor); ok {
		return d
	}

	switch val := v.(type) {
	case Checksummer:
		return Explicit{Sum: val.Checksum()}
	case []byte:
		return Bytes(val)
	case string:
		return Text(val)
	case CodeIdentity:
		return Closure{Code: val.CodeID(), Captured: val.Captured()}
	case PartialApplication:
		return Partial{Func: val.PartialFunc(), Args: val.PartialArgs(), Kwargs: val.PartialKeywords()}
	case RawBuffer:
		return Array(val.RawBytes())
	}

	if buf, ok := numericBuffer(v); ok {
		return Array(buf)
	}
	if s, ok := scalarText(v); ok {
		return Scalar(s)
	}
	return Opaque(fmt.Sprint(v))
}

// isNilPointer reports typed nils that cannot carry any content.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// numericBuffer encodes common numeric slices as little-endian buffers.
// Two-dimensional float slices are flattened row-major.
func numericBuffer(v any) ([]byte, bool) {
	switch val := v.(type) {
	case []float64:
		return float64Bytes(val), true
	case [][]float64:
		var buf []byte
		for _, row := range val {
			buf = append(buf, float64Bytes(row)...)
		}
		return buf, true
	case []float32:
		buf := make([]byte, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
		}
		return buf, true
	case []int:
		buf := make([]byte, 8*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(x))
		}
		return buf, true
	case []int64:
		buf := make([]byte, 8*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(x))
		}
		return buf, true
	case []int32:
		buf := make([]byte, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(x))
		}
		return buf, true
	case []uint64:
		buf := make([]byte, 8*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint64(buf[8*i:], x)
		}
		return buf, true
	case []uint32:
		buf := make([]byte, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(buf[4*i:], x)
		}
		return buf, true
	case []bool:
		buf := make([]byte, len(val))
		for i, x := range val {
			if x {
				buf[i] = 1
			}
		}
		return buf, true
	}
	return nil, false
}

func float64Bytes(xs []float64) []byte {
	buf := make([]byte, 8*len(xs))
	for i, x := range xs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

// scalarText renders numbers and bools, including named types built on them.
// Floats always carry a decimal point or exponent so 1 and 1.0 differ.
func scalarText(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return floatText(rv.Float(), 32), true
	case reflect.Float64:
		return floatText(rv.Float(), 64), true
	case reflect.Bool:
		if rv.Bool() {
			return "True", true
		}
		return "False", true
	}
	return "", false
}

func floatText(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Label returns a short human description of v for logs and cache listings.
// It is not part of any fingerprint.
func Label(v any) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	switch d := Classify(v).(type) {
	case Explicit:
		return "fingerprint:" + d.Sum.Hex()[:12]
	case None:
		return noneLiteral
	case Bytes:
		return fmt.Sprintf("bytes[%d]", len(d))
	case Text:
		return strconv.Quote(string(d))
	case Closure:
		return string(d.Code)
	case Partial:
		keys := sortedKeys(d.Kwargs)
		parts := make([]string, 0, len(d.Args)+len(keys))
		for _, a := range d.Args {
			parts = append(parts, Label(a))
		}
		for _, k := range keys {
			parts = append(parts, k+"="+Label(d.Kwargs[k]))
		}
		return Label(d.Func) + "(" + strings.Join(parts, ", ") + ")"
	case Array:
		return fmt.Sprintf("array[%dB]", len(d))
	case Scalar:
		return string(d)
	case Opaque:
		return string(d)
	}
	return "?"
}
