package profile

// pprof.go hand-rolls the small, fixed subset of the pprof protobuf
// wire format (github.com/google/pprof/proto/profile.proto) that spec
// §6 "Profile output" requires: sample types, locations/functions keyed
// by block id, and one sample per block carrying its self-time. No
// protobuf library is wired anywhere else in this module's dependency
// pack, so this is a direct varint/length-delimited encoder rather than
// an import of google.golang.org/protobuf (see DESIGN.md).

type protoWriter struct {
	buf []byte
}

func (w *protoWriter) varint(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

func (w *protoWriter) tag(field int, wireType byte) {
	w.varint(uint64(field)<<3 | uint64(wireType))
}

func (w *protoWriter) varintField(field int, v int64) {
	w.tag(field, 0)
	w.varint(uint64(v))
}

func (w *protoWriter) bytesField(field int, b []byte) {
	w.tag(field, 2)
	w.varint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *protoWriter) stringField(field int, s string) {
	w.bytesField(field, []byte(s))
}

// EncodePprof renders r as a pprof Profile message: one "samples"/"count"
// value type, one location+function per block, and one sample per block
// whose call stack is just that block, with its self-time as the value.
func EncodePprof(r *Report) []byte {
	var strings []string
	strIdx := map[string]int64{}
	intern := func(s string) int64 {
		if i, ok := strIdx[s]; ok {
			return i
		}
		i := int64(len(strings))
		strings = append(strings, s)
		strIdx[s] = i
		return i
	}
	intern("") // index 0 is always the empty string

	samplesIdx := intern("samples")
	countIdx := intern("count")

	var valueType protoWriter
	valueType.varintField(1, samplesIdx)
	valueType.varintField(2, countIdx)

	var out protoWriter
	out.bytesField(1, valueType.buf)

	for id, name := range r.Names {
		fnNameIdx := intern(name)

		var fn protoWriter
		fn.varintField(1, int64(id)+1) // function ids are 1-based
		fn.varintField(2, fnNameIdx)
		fn.varintField(3, fnNameIdx)
		out.bytesField(5, fn.buf)

		var line protoWriter
		line.varintField(1, int64(id)+1)

		var loc protoWriter
		loc.varintField(1, int64(id)+1) // location ids are 1-based
		loc.bytesField(4, line.buf)
		out.bytesField(4, loc.buf)

		var sample protoWriter
		sample.varintField(1, int64(id)+1)
		sample.varintField(2, r.Self[id])
		out.bytesField(2, sample.buf)
	}

	for _, s := range strings {
		out.stringField(6, s)
	}

	return out.buf
}
