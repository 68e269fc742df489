package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Delimiter separates routing/identity frames from the signed message
// frames in every Jupyter wire message.
const Delimiter = "<IDS|MSG>"

// ProtocolVersion is the Jupyter messaging protocol version this harness
// speaks in outgoing headers.
const ProtocolVersion = "5.3"

// Header is the per-message header present on both the header and
// parent_header fields of every envelope.
type Header struct {
	MsgID    string `json:"msg_id"`
	Username string `json:"username"`
	Session  string `json:"session"`
	MsgType  string `json:"msg_type"`
	Version  string `json:"version"`
	Date     string `json:"date"`
}

// Envelope is a fully decoded Jupyter message, independent of which
// channel it arrived on.
type Envelope struct {
	Header       Header          `json:"header"`
	ParentHeader Header          `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
}

// NewRequest builds a fresh envelope for a request this harness sends:
// a new random msg_id, the given session and message type, and the
// caller-supplied content marshaled to JSON.
func NewRequest(session, msgType string, content any) (*Envelope, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating msg_id: %w", err)
	}

	body, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshaling content for %s: %w", msgType, err)
	}

	return &Envelope{
		Header: Header{
			MsgID:    id.String(),
			Username: "kernelconform",
			Session:  session,
			MsgType:  msgType,
			Version:  ProtocolVersion,
			Date:     time.Now().UTC().Format(time.RFC3339),
		},
		Metadata: map[string]any{},
		Content:  body,
	}, nil
}

// DecodeContent unmarshals the envelope's content into v.
func (e *Envelope) DecodeContent(v any) error {
	return json.Unmarshal(e.Content, v)
}

// MarshalFrames signs and serializes the envelope into the five frames
// that follow the "<IDS|MSG>" delimiter: signature, header, parent_header,
// metadata, content. Grounded on gonb's Kernel.ToWireMsg - the only
// difference is this side never prepends ROUTER identity frames, since a
// DEALER socket's outgoing identity is handled by ZeroMQ itself.
func (e *Envelope) MarshalFrames(signKey []byte) ([][]byte, error) {
	parts := make([][]byte, 5)

	header, err := json.Marshal(e.Header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}
	parts[1] = header

	parentHeader, err := json.Marshal(e.ParentHeader)
	if err != nil {
		return nil, fmt.Errorf("marshaling parent_header: %w", err)
	}
	parts[2] = parentHeader

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	parts[3] = metadataBytes

	content := e.Content
	if content == nil {
		content = json.RawMessage("{}")
	}
	parts[4] = content

	if len(signKey) != 0 {
		mac := hmac.New(sha256.New, signKey)
		for _, part := range parts[1:] {
			mac.Write(part)
		}
		sig := make([]byte, hex.EncodedLen(mac.Size()))
		hex.Encode(sig, mac.Sum(nil))
		parts[0] = sig
	} else {
		parts[0] = []byte{}
	}

	return parts, nil
}

// Frames builds the complete multipart message to hand to zmq4.Socket.Send:
// the delimiter frame followed by the five signed frames from
// MarshalFrames.
func (e *Envelope) Frames(signKey []byte) ([][]byte, error) {
	signed, err := e.MarshalFrames(signKey)
	if err != nil {
		return nil, err
	}
	frames := make([][]byte, 0, len(signed)+1)
	frames = append(frames, []byte(Delimiter))
	frames = append(frames, signed...)
	return frames, nil
}

// InvalidSignatureError indicates a received message's HMAC did not match
// the signing key this driver was configured with.
type InvalidSignatureError struct{}

func (e *InvalidSignatureError) Error() string {
	return "message had an invalid signature"
}

// UnmarshalFrames parses a raw multipart ZMQ message into an Envelope,
// verifying its signature. Grounded on gonb's Kernel.FromWireMsg: it scans
// for the delimiter rather than assuming frame 0 is it, since a DEALER
// socket is not guaranteed immunity from leading frames depending on the
// peer's own socket type.
func UnmarshalFrames(frames [][]byte, signKey []byte) (*Envelope, error) {
	delim := -1
	for i, f := range frames {
		if string(f) == Delimiter {
			delim = i
			break
		}
	}
	if delim < 0 {
		return nil, fmt.Errorf("malformed message: no %s delimiter found", Delimiter)
	}
	if len(frames) < delim+6 {
		return nil, fmt.Errorf("malformed message: expected 5 frames after delimiter, got %d", len(frames)-delim-1)
	}

	sig := frames[delim+1]
	header := frames[delim+2]
	parentHeader := frames[delim+3]
	metadata := frames[delim+4]
	content := frames[delim+5]

	if len(signKey) != 0 {
		mac := hmac.New(sha256.New, signKey)
		mac.Write(header)
		mac.Write(parentHeader)
		mac.Write(metadata)
		mac.Write(content)

		decoded := make([]byte, hex.DecodedLen(len(sig)))
		n, err := hex.Decode(decoded, sig)
		if err != nil {
			return nil, fmt.Errorf("decoding signature: %w", &InvalidSignatureError{})
		}
		if !hmac.Equal(mac.Sum(nil), decoded[:n]) {
			return nil, &InvalidSignatureError{}
		}
	}

	e := &Envelope{Metadata: map[string]any{}}
	if err := json.Unmarshal(header, &e.Header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if err := json.Unmarshal(parentHeader, &e.ParentHeader); err != nil {
		return nil, fmt.Errorf("decoding parent_header: %w", err)
	}
	if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	e.Content = json.RawMessage(content)

	return e, nil
}
