// Package translate unwraps the frames the device pushes over its message
// socket. Text frames carry a bare JSON payload; binary frames carry a
// msgpack WRP envelope whose payload is the JSON message.
package translate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xmidt-org/wrp-go/v3"
)

var (
	errEmptyFrame      = errors.New("wrp: empty frame")
	errUnsupportedType = errors.New("wrp: unsupported message type")
	errEmptyPayload    = errors.New("wrp: envelope carries no payload")
)

const jsonContentType = "application/json"

// Frame is one inbound message with its envelope metadata, if any.
type Frame struct {
	Source          string
	Destination     string
	TransactionUUID string
	ContentType     string
	Payload         []byte
}

// DecodeFrame extracts the JSON payload of a websocket frame.
func DecodeFrame(binary bool, data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, errEmptyFrame
	}
	if !binary {
		return Frame{ContentType: jsonContentType, Payload: data}, nil
	}
	var msg wrp.Message
	if err := wrp.NewDecoderBytes(data, wrp.Msgpack).Decode(&msg); err != nil {
		return Frame{}, fmt.Errorf("wrp: decode: %w", err)
	}
	switch msg.Type {
	case wrp.SimpleEventMessageType, wrp.SimpleRequestResponseMessageType:
	default:
		return Frame{}, fmt.Errorf("%w: %s", errUnsupportedType, msg.Type)
	}
	if len(msg.Payload) == 0 {
		return Frame{}, errEmptyPayload
	}
	return Frame{
		Source:          msg.Source,
		Destination:     msg.Destination,
		TransactionUUID: msg.TransactionUUID,
		ContentType:     msg.ContentType,
		Payload:         msg.Payload,
	}, nil
}

// EncodeEvent wraps a JSON payload in a msgpack WRP simple event.
func EncodeEvent(source, destination string, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errEmptyPayload
	}
	msg := wrp.Message{
		Type:            wrp.SimpleEventMessageType,
		Source:          source,
		Destination:     destination,
		TransactionUUID: uuid.NewString(),
		ContentType:     jsonContentType,
		Payload:         payload,
	}
	var out []byte
	if err := wrp.NewEncoderBytes(&out, wrp.Msgpack).Encode(&msg); err != nil {
		return nil, fmt.Errorf("wrp: encode: %w", err)
	}
	return out, nil
}
