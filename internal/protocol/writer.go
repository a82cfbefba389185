package protocol

import "encoding/binary"

// Writer builds an outbound message. All multi-byte writes are big-endian.
// Byte 0 is always the command byte supplied at construction.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer whose first byte is the given command.
func NewWriter(command byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.buf = append(w.buf, command)
	return w
}

// Byte writes a single byte.
func (w *Writer) Byte(v byte) {
	w.buf = append(w.buf, v)
}

// Int16 writes 2 bytes big-endian.
func (w *Writer) Int16(v int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
}

// Int32 writes 4 bytes big-endian.
func (w *Writer) Int32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// String writes a 4-byte length prefix followed by the UTF-8 bytes of s.
func (w *Writer) String(s string) {
	w.Int32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw writes bytes with no prefix. Used for trailing fields whose length
// is implied by the remaining buffer.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// RawString writes the UTF-8 bytes of s with no prefix.
func (w *Writer) RawString(s string) {
	w.buf = append(w.buf, s...)
}

// Bytes returns the encoded message.
func (w *Writer) Bytes() []byte {
	return w.buf
}
