package checksum

import (
	"bytes"
	"crypto/md5"
	"log/slog"
	"slices"
	"strconv"
)

// Salt is mixed into every fingerprint computed by the default engine.
// Changing it invalidates every cache entry at once.
const Salt = 42

// Engine computes fingerprints under one salt.
// An Engine is immutable and safe for concurrent use.
type Engine struct {
	salt   int
	prefix []byte
}

// New returns an engine for the given salt.
func New(salt int) *Engine {
	return &Engine{
		salt:   salt,
		prefix: []byte(strconv.Itoa(salt)),
	}
}

var defaultEngine = New(Salt)

// Default returns the engine salted with Salt.
func Default() *Engine {
	return defaultEngine
}

// Salt returns the engine's salt.
func (e *Engine) Salt() int {
	return e.salt
}

// Sum fingerprints values with the default engine.
func Sum(values ...any) Fingerprint {
	return defaultEngine.Sum(values...)
}

// Sum classifies each value and fingerprints the salted byte stream.
// Nested values (captures, bound arguments) are fingerprinted recursively
// with the same engine and contribute the decimal form of their digest.
func (e *Engine) Sum(values ...any) Fingerprint {
	var buf bytes.Buffer
	buf.Write(e.prefix)
	for _, v := range values {
		e.append(&buf, Classify(v))
	}
	return Fingerprint(md5.Sum(buf.Bytes()))
}

// Bytes returns the accumulated stream Sum would digest. Exposed for
// debugging cache misses; the stream is not a stable serialization format.
func (e *Engine) Bytes(values ...any) []byte {
	var buf bytes.Buffer
	buf.Write(e.prefix)
	for _, v := range values {
		e.append(&buf, Classify(v))
	}
	return buf.Bytes()
}

func (e *Engine) append(buf *bytes.Buffer, d Descriptor) {
	switch d := d.(type) {
	case Explicit:
		buf.WriteString(d.Sum.String())
	case None:
		buf.WriteString(noneLiteral)
	case Bytes:
		buf.Write(d)
	case Text:
		buf.WriteString(string(d))
	case Closure:
		slog.Debug("checksum via code identity", "code", string(d.Code), "captured", len(d.Captured))
		buf.Write(d.Code)
		for _, c := range d.Captured {
			buf.WriteString(e.Sum(c).String())
		}
	case Partial:
		slog.Debug("checksum via partial", "func", Label(d.Func), "args", len(d.Args), "kwargs", len(d.Kwargs))
		buf.WriteString(e.Sum(d.Func).String())
		for _, a := range d.Args {
			buf.WriteString(e.Sum(a).String())
		}
		for _, k := range sortedKeys(d.Kwargs) {
			buf.WriteString(k)
			buf.WriteString(e.Sum(d.Kwargs[k]).String())
		}
	case Array:
		buf.Write(d)
	case Scalar:
		buf.WriteString(string(d))
	case Opaque:
		slog.Debug("checksum via textual form", "text", string(d))
		buf.WriteString(string(d))
	}
}

// sortedKeys orders keyword names by byte value, which for UTF-8 is code
// point order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
