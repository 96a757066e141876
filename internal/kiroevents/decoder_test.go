package kiroevents

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"
)

// encodeHeader appends one string-valued TLV header entry.
func encodeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(7) // string type
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(value)))
	buf.Write(lenBuf[:])
	buf.WriteString(value)
}

// encodeFrame builds one complete AWS event-stream frame for a given
// event-type header and JSON payload, with zeroed (unverified) CRCs.
func encodeFrame(t *testing.T, eventType string, payload []byte) []byte {
	t.Helper()
	var headers bytes.Buffer
	encodeHeader(&headers, ":event-type", eventType)

	headersLen := headers.Len()
	total := preludeLength + preludeCRCLen + headersLen + len(payload) + messageCRCLen

	var frame bytes.Buffer
	var totalBuf, headersLenBuf [4]byte
	binary.BigEndian.PutUint32(totalBuf[:], uint32(total))
	binary.BigEndian.PutUint32(headersLenBuf[:], uint32(headersLen))
	frame.Write(totalBuf[:])
	frame.Write(headersLenBuf[:])
	frame.Write(make([]byte, preludeCRCLen))
	frame.Write(headers.Bytes())
	frame.Write(payload)
	frame.Write(make([]byte, messageCRCLen))
	return frame.Bytes()
}

func TestDecoderDecodesSingleFrame(t *testing.T) {
	d := NewEventStreamDecoder()
	payload := []byte(`{"content":"hello"}`)
	raw := encodeFrame(t, "assistantResponseEvent", payload)

	if err := d.Feed(raw); err != nil {
		t.Fatalf("unexpected Feed error: %v", err)
	}
	results := d.DecodeIter()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected decode error: %v", results[0].Err)
	}
	if results[0].Frame.EventType != "assistantResponseEvent" {
		t.Errorf("unexpected event type: %s", results[0].Frame.EventType)
	}
	if string(results[0].Frame.Payload) != string(payload) {
		t.Errorf("unexpected payload: %s", results[0].Frame.Payload)
	}
}

func TestDecoderHandlesSplitFeed(t *testing.T) {
	d := NewEventStreamDecoder()
	raw := encodeFrame(t, "toolUseEvent", []byte(`{"name":"Read"}`))

	mid := len(raw) / 2
	if err := d.Feed(raw[:mid]); err != nil {
		t.Fatalf("unexpected error on first half: %v", err)
	}
	if results := d.DecodeIter(); len(results) != 0 {
		t.Fatalf("expected no results before full frame buffered, got %d", len(results))
	}
	if err := d.Feed(raw[mid:]); err != nil {
		t.Fatalf("unexpected error on second half: %v", err)
	}
	results := d.DecodeIter()
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected 1 clean result after full frame buffered, got %+v", results)
	}
}

func TestDecoderDecodesMultipleFramesInOneFeed(t *testing.T) {
	d := NewEventStreamDecoder()
	var raw []byte
	raw = append(raw, encodeFrame(t, "assistantResponseEvent", []byte(`{"content":"a"}`))...)
	raw = append(raw, encodeFrame(t, "assistantResponseEvent", []byte(`{"content":"b"}`))...)

	if err := d.Feed(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results := d.DecodeIter()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestDecoderRejectsOversizedFrame(t *testing.T) {
	d := NewEventStreamDecoder()
	var totalBuf [4]byte
	binary.BigEndian.PutUint32(totalBuf[:], maxFrameLength+1)
	oversized := append(totalBuf[:], make([]byte, 8)...)

	err := d.Feed(oversized)
	if err != ErrBufferOverflow {
		t.Fatalf("expected ErrBufferOverflow, got %v", err)
	}
	if d.buf.Len() != 0 {
		t.Errorf("expected buffer reset after overflow, got %d bytes", d.buf.Len())
	}
}

func TestDecoderInflatesGzipPayload(t *testing.T) {
	d := NewEventStreamDecoder()

	var headers bytes.Buffer
	encodeHeader(&headers, ":event-type", "assistantResponseEvent")
	encodeHeader(&headers, ":content-encoding", "gzip")

	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	_, _ = gw.Write([]byte(`{"content":"zipped"}`))
	_ = gw.Close()

	headersLen := headers.Len()
	total := preludeLength + preludeCRCLen + headersLen + compressed.Len() + messageCRCLen

	var frame bytes.Buffer
	var totalBuf, headersLenBuf [4]byte
	binary.BigEndian.PutUint32(totalBuf[:], uint32(total))
	binary.BigEndian.PutUint32(headersLenBuf[:], uint32(headersLen))
	frame.Write(totalBuf[:])
	frame.Write(headersLenBuf[:])
	frame.Write(make([]byte, preludeCRCLen))
	frame.Write(headers.Bytes())
	frame.Write(compressed.Bytes())
	frame.Write(make([]byte, messageCRCLen))

	if err := d.Feed(frame.Bytes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results := d.DecodeIter()
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected 1 clean result, got %+v", results)
	}
	if string(results[0].Frame.Payload) != `{"content":"zipped"}` {
		t.Errorf("unexpected inflated payload: %s", results[0].Frame.Payload)
	}
}
