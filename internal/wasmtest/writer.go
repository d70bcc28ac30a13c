package wasmtest

import "bytes"

// writer is a byte buffer with WebAssembly binary encodings.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) raw(b []byte) {
	w.buf.Write(b)
}

// u32 writes an unsigned LEB128 value.
func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// s64 writes a signed LEB128 value.
func (w *writer) s64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.buf.WriteByte(b)
			return
		}
		w.buf.WriteByte(b | 0x80)
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

// vec writes a length-prefixed byte vector.
func (w *writer) vec(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) section(id byte, body *writer) {
	w.byte(id)
	w.vec(body.buf.Bytes())
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}
