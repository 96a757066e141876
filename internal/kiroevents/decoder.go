package kiroevents

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	log "github.com/sirupsen/logrus"
)

// maxFrameLength is the safety ceiling on a single frame's declared total
// length. A frame exceeding it is treated as buffer corruption: the decoder
// drops its buffered bytes, reports ErrBufferOverflow (from Feed, or as a
// DecodeIter result) for the caller to log, and keeps decoding subsequent
// input.
const maxFrameLength = 4 * 1024 * 1024

const (
	preludeLength = 8 // total-length (4B) + headers-length (4B)
	preludeCRCLen = 4
	messageCRCLen = 4
)

// Frame is one decoded on-the-wire AWS event-stream record: the selected
// ":event-type" header value plus the raw JSON payload.
type Frame struct {
	EventType string
	Payload   []byte
}

// ErrBufferOverflow is returned by Feed when a declared frame length exceeds
// maxFrameLength; the decoder has discarded its buffer and recovers on the
// next Feed call.
var ErrBufferOverflow = errors.New("kiroevents: frame exceeds buffer safety ceiling")

// EventStreamDecoder incrementally decodes the AWS event-stream binary
// framing: `total-length(4B) | headers-length(4B) | prelude-CRC(4B) |
// headers | payload | message-CRC(4B)`. Headers are short TLV pairs; the
// decoder only inspects the ":event-type" header to select how the payload
// is interpreted.
type EventStreamDecoder struct {
	buf bytes.Buffer
}

// NewEventStreamDecoder constructs an empty decoder.
func NewEventStreamDecoder() *EventStreamDecoder {
	return &EventStreamDecoder{}
}

// Feed appends newly received bytes to the decode buffer. It returns
// ErrBufferOverflow (after discarding the buffer) if the next frame's
// declared length exceeds the safety ceiling; decoding may continue on
// subsequent calls.
func (d *EventStreamDecoder) Feed(chunk []byte) error {
	d.buf.Write(chunk)

	if d.buf.Len() >= 4 {
		total := binary.BigEndian.Uint32(d.buf.Bytes()[:4])
		if total > maxFrameLength {
			d.buf.Reset()
			return ErrBufferOverflow
		}
	}
	return nil
}

// DecodeIter drains every currently fully-buffered frame, returning each as
// (Frame, nil) or (Frame{}, err) for a frame that failed bounds/header
// validation; the prelude and message CRCs are not checked. Decoding stops
// once the buffer holds less than one complete frame; the remainder is
// preserved for the next Feed.
func (d *EventStreamDecoder) DecodeIter() []Result {
	var results []Result
	for {
		frame, consumed, ok, err := d.tryDecodeOne()
		if !ok {
			if err != nil {
				results = append(results, Result{Err: err})
			}
			break
		}
		d.buf.Next(consumed)
		if err != nil {
			results = append(results, Result{Err: err})
			continue
		}
		results = append(results, Result{Frame: frame})
	}
	return results
}

// Result is one element yielded by DecodeIter: either a decoded Frame or an
// error describing why this particular frame could not be decoded.
type Result struct {
	Frame Frame
	Err   error
}

func (d *EventStreamDecoder) tryDecodeOne() (Frame, int, bool, error) {
	raw := d.buf.Bytes()
	if len(raw) < preludeLength+preludeCRCLen {
		return Frame{}, 0, false, nil
	}

	totalLength := binary.BigEndian.Uint32(raw[0:4])
	headersLength := binary.BigEndian.Uint32(raw[4:8])

	if totalLength > maxFrameLength {
		d.buf.Reset()
		return Frame{}, 0, false, ErrBufferOverflow
	}
	if uint32(len(raw)) < totalLength {
		return Frame{}, 0, false, nil
	}

	headersStart := preludeLength + preludeCRCLen
	headersEnd := headersStart + int(headersLength)
	payloadEnd := int(totalLength) - messageCRCLen

	if headersEnd > payloadEnd || payloadEnd > len(raw) {
		return Frame{}, int(totalLength), true, fmt.Errorf("kiroevents: malformed frame bounds")
	}

	headers, err := parseHeaders(raw[headersStart:headersEnd])
	if err != nil {
		return Frame{}, int(totalLength), true, err
	}

	payload := raw[headersEnd:payloadEnd]
	if enc, ok := headers[":content-encoding"]; ok && enc == "gzip" {
		inflated, err := gunzip(payload)
		if err != nil {
			return Frame{}, int(totalLength), true, fmt.Errorf("kiroevents: gzip payload: %w", err)
		}
		payload = inflated
	}

	frame := Frame{EventType: headers[":event-type"], Payload: append([]byte(nil), payload...)}
	return frame, int(totalLength), true, nil
}

// parseHeaders decodes the TLV header block: each entry is a one-byte name
// length, the name, a one-byte value-type tag, and a type-dependent value.
// Only the string value type (7) is meaningfully produced; this gateway
// only ever needs string-valued headers (:event-type, :content-encoding).
func parseHeaders(data []byte) (map[string]string, error) {
	headers := make(map[string]string)
	i := 0
	for i < len(data) {
		if i+1 > len(data) {
			return nil, fmt.Errorf("kiroevents: truncated header name length")
		}
		nameLen := int(data[i])
		i++
		if i+nameLen > len(data) {
			return nil, fmt.Errorf("kiroevents: truncated header name")
		}
		name := string(data[i : i+nameLen])
		i += nameLen

		if i >= len(data) {
			return nil, fmt.Errorf("kiroevents: truncated header type")
		}
		valueType := data[i]
		i++

		switch valueType {
		case 7: // string: 2-byte big-endian length + bytes
			if i+2 > len(data) {
				return nil, fmt.Errorf("kiroevents: truncated string header length")
			}
			valLen := int(binary.BigEndian.Uint16(data[i : i+2]))
			i += 2
			if i+valLen > len(data) {
				return nil, fmt.Errorf("kiroevents: truncated string header value")
			}
			headers[name] = string(data[i : i+valLen])
			i += valLen
		case 4: // bool-true, 0 bytes
		case 0: // bool-false, 0 bytes
		case 2: // byte, 1 byte
			i++
		case 3: // int16, 2 bytes
			i += 2
		case 5: // int32, 4 bytes
			i += 4
		case 6: // int64, 8 bytes
			i += 8
		case 8: // timestamp, 8 bytes
			i += 8
		case 9: // uuid, 16 bytes
			i += 16
		default:
			return nil, fmt.Errorf("kiroevents: unsupported header value type %d", valueType)
		}
	}
	return headers, nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			log.Debugf("kiroevents: gzip reader close: %v", cerr)
		}
	}()
	return io.ReadAll(r)
}
