package ipc

import (
	"encoding/binary"
	"errors"
	"io"
)

// magic prefixes every message in either direction.
const magic = "i3-ipc"

// HeaderSize is magic plus the two fixed uint32 fields.
const HeaderSize = len(magic) + 8

var (
	// ErrIncomplete signals that the buffer does not yet hold a full
	// message. No bytes were consumed; retry once more data arrived.
	ErrIncomplete = errors.New("incomplete message")

	// ErrBadMagic signals a framing error. The stream cannot be
	// resynchronized and the connection must be closed.
	ErrBadMagic = errors.New("bad magic sequence")
)

// Encode frames a message: magic, payload length, type, payload.
func Encode(msgType uint32, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[len(magic):], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[len(magic)+4:], msgType)
	copy(buf[HeaderSize:], payload)
	return buf
}

// Decode extracts one message from the front of buf. It returns the
// number of bytes consumed so the caller can advance its buffer. A short
// buffer yields ErrIncomplete with nothing consumed. The returned payload
// is a copy and stays valid after the buffer is reused.
func Decode(buf []byte) (msgType uint32, payload []byte, consumed int, err error) {
	if len(buf) < HeaderSize {
		return 0, nil, 0, ErrIncomplete
	}
	if string(buf[:len(magic)]) != magic {
		return 0, nil, 0, ErrBadMagic
	}
	length := binary.LittleEndian.Uint32(buf[len(magic):])
	msgType = binary.LittleEndian.Uint32(buf[len(magic)+4:])
	total := HeaderSize + int(length)
	if len(buf) < total {
		return 0, nil, 0, ErrIncomplete
	}
	payload = make([]byte, length)
	copy(payload, buf[HeaderSize:total])
	return msgType, payload, total, nil
}

// WriteMessage frames and writes one message to w.
func WriteMessage(w io.Writer, msgType uint32, payload []byte) error {
	_, err := w.Write(Encode(msgType, payload))
	return err
}

// ReadMessage blocks until one full message was read from r. Used by
// clients; the server decodes out of its read buffer instead.
func ReadMessage(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	if string(header[:len(magic)]) != magic {
		return 0, nil, ErrBadMagic
	}
	length := binary.LittleEndian.Uint32(header[len(magic):])
	msgType := binary.LittleEndian.Uint32(header[len(magic)+4:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return msgType, payload, nil
}
