package signal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Envelope is a decoded inbound frame whose data is left encoded until the
// handler knows its shape.
type Envelope struct {
	ID    *int64
	Event string
	Data  []byte
}

// Codec encodes outbound frames and decodes inbound ones for one wire format.
type Codec interface {
	Name() string
	FrameType() int
	Encode(v interface{}) ([]byte, error)
	DecodeEnvelope(frame []byte) (Envelope, error)
	DecodeData(data []byte, v interface{}) error
}

// CodecFor picks the codec named in the handshake; empty means JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}

type jsonCodec struct{}

type jsonEnvelope struct {
	ID    *int64          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string   { return CodecJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) DecodeEnvelope(frame []byte) (Envelope, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: env.ID, Event: env.Event, Data: env.Data}, nil
}

func (jsonCodec) DecodeData(data []byte, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// msgpackCodec reuses the json struct tags so both formats share field names.
type msgpackCodec struct{}

type msgpackEnvelope struct {
	ID    *int64             `json:"id,omitempty"`
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

func (msgpackCodec) Name() string   { return CodecMsgpack }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) DecodeEnvelope(frame []byte) (Envelope, error) {
	var env msgpackEnvelope
	if err := decodeMsgpack(frame, &env); err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: env.ID, Event: env.Event, Data: env.Data}, nil
}

func (msgpackCodec) DecodeData(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return decodeMsgpack(data, v)
}

func decodeMsgpack(b []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
