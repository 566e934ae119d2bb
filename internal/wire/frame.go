// Package wire encodes duel messages into length-prefixed frames.
//
// A frame is a 4-byte big-endian payload length followed by exactly that many
// bytes of UTF-8 JSON. Receivers reassemble frames with ReadFrame, so the way a
// stream transport chunks bytes never merges or splits logical messages.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderSize          = 4
	DefaultMaxFrameSize = 64 << 10
)

var ErrMalformedMessage = errors.New("malformed message")

// Frame prefixes payload with its length.
func Frame(payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(out[:HeaderSize], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

// ReadFrame blocks until one complete frame is available and returns it,
// header included. io.EOF means the stream ended cleanly between frames;
// io.ErrUnexpectedEOF means it ended inside one.
func ReadFrame(r io.Reader, maxPayload int) ([]byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxFrameSize
	}
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || uint64(n) > uint64(maxPayload) {
		return nil, fmt.Errorf("%w: frame length %d outside 1..%d", ErrMalformedMessage, n, maxPayload)
	}
	frame := make([]byte, HeaderSize+int(n))
	copy(frame, hdr[:])
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes every byte of b, looping over short writes.
func WriteFrame(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// payloadOf checks the length header against the buffer and returns the body.
func payloadOf(frame []byte) ([]byte, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrMalformedMessage, len(frame))
	}
	n := binary.BigEndian.Uint32(frame[:HeaderSize])
	body := frame[HeaderSize:]
	if uint64(n) != uint64(len(body)) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrMalformedMessage, n, len(body))
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedMessage)
	}
	return body, nil
}
