// Package net implements the client-facing TCP transport. Every message
// travels in a frame: a 2-byte big-endian payload length followed by the
// payload bytes. Payload interpretation belongs to the protocol package.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload a frame can carry, fixed by the 2-byte
// length field.
const MaxFrameSize = 1<<16 - 1

// ErrFrameTooLarge is returned when a payload exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("net: frame payload too large")

// ErrEmptyFrame is returned when a frame declares a zero-length payload.
var ErrEmptyFrame = errors.New("net: empty frame")

// WriteFrame writes payload to w as a single length-prefixed frame.
//
// Precondition: len(payload) must be 1..MaxFrameSize.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its payload.
//
// Postcondition: Returns a payload of 1..MaxFrameSize bytes, or a non-nil
// error (io.EOF on clean close before a header).
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("reading frame header: %w", err)
		}
		return nil, err
	}
	n := binary.BigEndian.Uint16(hdr[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}
