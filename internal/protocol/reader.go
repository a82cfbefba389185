package protocol

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a payload ends before a declared field.
// Handlers treat it as a protocol error: log and drop the message.
var ErrTruncated = errors.New("protocol: truncated payload")

// Reader consumes the payload of an inbound message, starting after the
// command byte. The error is sticky: once a read runs past the end of the
// buffer every later read returns the zero value, and Err reports
// ErrTruncated. Callers check Err once after the last field.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader positioned after the command byte of msg.
//
// Precondition: msg must be non-empty.
func NewReader(msg []byte) *Reader {
	return &Reader{data: msg, off: 1}
}

// Err returns ErrTruncated if any read overran the payload, nil otherwise.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.off > len(r.data) {
		return 0
	}
	return len(r.data) - r.off
}

// Int16 reads 2 bytes big-endian as a signed value.
func (r *Reader) Int16() int16 {
	if r.err != nil || r.off+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := int16(binary.BigEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

// Int32 reads 4 bytes big-endian as a signed value.
func (r *Reader) Int32() int32 {
	if r.err != nil || r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// String reads a 4-byte length prefix and that many UTF-8 bytes.
func (r *Reader) String() string {
	n := r.Int32()
	if r.err != nil || n < 0 || r.off+int(n) > len(r.data) {
		r.fail()
		return ""
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) []byte {
	if r.err != nil || n < 0 || r.off+n > len(r.data) {
		r.fail()
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Rest reads all remaining bytes. Used for trailing fields whose length is
// implied by the payload length.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}

// RestString reads all remaining bytes as a UTF-8 string.
func (r *Reader) RestString() string {
	return string(r.Rest())
}

func (r *Reader) fail() {
	if r.err == nil {
		r.err = ErrTruncated
	}
	r.off = len(r.data) + 1
}
