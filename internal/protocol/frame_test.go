package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{
		[]byte(`{"type":"status","data":"lobby"}`),
		[]byte(`{}`),
		{},
	}
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("drained reader returned %v, want io.EOF", err)
	}
}

func TestFrameLittleEndianHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("abc")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) != 7 {
		t.Fatalf("encoded length = %d, want 7", len(raw))
	}
	if n := binary.LittleEndian.Uint32(raw[:4]); n != 3 {
		t.Errorf("header = %d, want 3", n)
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 10)
	buf.Write(header[:])
	buf.WriteString("abc") // 7 bytes missing

	if _, err := ReadFrame(&buf); !errors.Is(err, ErrShortFrame) {
		t.Errorf("ReadFrame = %v, want ErrShortFrame", err)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{1, 0})); !errors.Is(err, ErrShortFrame) {
		t.Errorf("ReadFrame = %v, want ErrShortFrame", err)
	}
}

func TestFrameSizeLimit(t *testing.T) {
	if err := WriteFrame(io.Discard, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame oversized = %v, want ErrFrameTooLarge", err)
	}

	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])
	if _, err := ReadFrame(&buf); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame oversized = %v, want ErrFrameTooLarge", err)
	}
}

func TestClientMessageRoundTrip(t *testing.T) {
	original, err := NewClientMessage("alice", TypeChangeState, ChangeStateData{Target: TargetPlay})
	if err != nil {
		t.Fatalf("NewClientMessage: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	decoded, err := ReadClientMessage(&buf)
	if err != nil {
		t.Fatalf("ReadClientMessage: %v", err)
	}

	if decoded.Username != "alice" {
		t.Errorf("Username = %q, want %q", decoded.Username, "alice")
	}
	if decoded.Type != TypeChangeState {
		t.Errorf("Type = %q, want %q", decoded.Type, TypeChangeState)
	}
	var data ChangeStateData
	if err := json.Unmarshal(decoded.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data.Target != TargetPlay {
		t.Errorf("Target = %q, want %q", data.Target, TargetPlay)
	}
}

func TestServerMessageAckEchoesCommand(t *testing.T) {
	cmd, err := NewClientMessage("bob", TypeStartGame, nil)
	if err != nil {
		t.Fatalf("NewClientMessage: %v", err)
	}
	ack, err := NewServerMessage(TypeAck, cmd)
	if err != nil {
		t.Fatalf("NewServerMessage: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, ack); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	decoded, err := ReadServerMessage(&buf)
	if err != nil {
		t.Fatalf("ReadServerMessage: %v", err)
	}
	if decoded.Type != TypeAck {
		t.Fatalf("Type = %q, want %q", decoded.Type, TypeAck)
	}

	var echoed ClientMessage
	if err := json.Unmarshal(decoded.Data, &echoed); err != nil {
		t.Fatalf("decoding echoed command: %v", err)
	}
	if echoed.Username != "bob" || echoed.Type != TypeStartGame {
		t.Errorf("echoed command = %+v, want bob/start_game", echoed)
	}
}

func TestReadClientMessageRejectsMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte(`{"username":`)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := ReadClientMessage(&buf); err == nil {
		t.Error("ReadClientMessage accepted malformed JSON")
	}
}
