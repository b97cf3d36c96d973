// Package checksum computes stable content fingerprints for computation
// descriptors: functions with captured values, partially applied functions,
// byte strings, text, numeric arrays and anything else a caller wants to use
// as a cache key.
//
// Every fingerprint is the MD5 digest of a byte stream that starts with the
// textual Salt followed by one contribution per value, interpreted as a
// 128-bit big-endian unsigned integer. Values are classified exactly once, at
// the Sum boundary, into a sealed Descriptor variant:
//
//	Explicit  value carries a precomputed Fingerprint (Checksummer)
//	None      nil
//	Bytes     []byte, appended verbatim
//	Text      string, appended as UTF-8
//	Closure   code identity bytes plus the fingerprint of each capture
//	Partial   function, positional args, keyword args sorted by name
//	Array     raw little-endian numeric buffer (shape is not encoded)
//	Scalar    textual form of a number or bool
//	Opaque    fmt.Sprint of anything else
//
// Key constraints:
//   - Classification is capability based (interfaces), never identity based
//   - No memory addresses, wall-clock time or map iteration order leak into a digest
//   - Sum never fails; unknown kinds degrade to Opaque
//   - Descriptor graphs must be acyclic; there is no cycle guard
//
// Arrays with identical bytes but different shapes or element types collide
// on purpose. Opaque values whose String form embeds pointers are not stable
// across processes.
package checksum
