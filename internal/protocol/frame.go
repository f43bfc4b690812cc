package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize caps the payload length of a single frame. Frames
// announcing more than this are treated as protocol violations rather
// than allocation requests.
const MaxFrameSize = 8 << 10

var (
	// ErrFrameTooLarge is returned for frames whose announced length
	// exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

	// ErrShortFrame is returned when a connection ends mid-payload after
	// announcing a length.
	ErrShortFrame = errors.New("protocol: short frame")
)

// WriteFrame writes one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame. A stream that ends cleanly
// on a frame boundary returns io.EOF; one that ends after announcing a
// length returns ErrShortFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	return payload, nil
}

// WriteMessage marshals v and writes it as a single frame.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadClientMessage reads one frame and decodes it as a client envelope.
func ReadClientMessage(r io.Reader) (ClientMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return ClientMessage{}, err
	}
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decoding client message: %w", err)
	}
	return msg, nil
}

// ReadServerMessage reads one frame and decodes it as a server envelope.
func ReadServerMessage(r io.Reader) (ServerMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return ServerMessage{}, err
	}
	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("decoding server message: %w", err)
	}
	return msg, nil
}
