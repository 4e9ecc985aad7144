// Package classify sorts inbound device payloads into remote scripts, log
// entries and status snapshots.
//
// The checks run in a fixed order and the first match wins:
//
//  1. the ScriptValidator accepts the payload -> RemoteScript
//  2. the payload is an object with a truthy "meta" field -> LogEntry
//  3. the payload is an object with a truthy "configuration" field -> StatusSnapshot
//  4. anything else -> Unrecognized
//
// Log entries and status snapshots share a channel and are told apart by a
// single field each. A payload carrying both "meta" and "configuration" is a
// LogEntry.
package classify

import (
	"encoding/json"
	"fmt"

	"github.com/xmidt-org/talaria/configurator"
)

type Kind int

const (
	Unrecognized Kind = iota
	RemoteScript
	LogEntry
	StatusSnapshot
)

func (k Kind) String() string {
	switch k {
	case RemoteScript:
		return "remote_script"
	case LogEntry:
		return "log"
	case StatusSnapshot:
		return "status"
	default:
		return "unrecognized"
	}
}

// ScriptValidator decides whether a payload is an executable instruction tree.
type ScriptValidator func(payload any) bool

// NoScripts never recognises a remote script.
func NoScripts(any) bool { return false }

// Verdict is the classification of one payload.
type Verdict struct {
	Kind    Kind
	Payload any
}

// Classify is total: every payload gets exactly one Kind.
func Classify(payload any, isRemoteScript ScriptValidator) Verdict {
	if isRemoteScript != nil && isRemoteScript(payload) {
		return Verdict{Kind: RemoteScript, Payload: payload}
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return Verdict{Kind: Unrecognized, Payload: payload}
	}
	if truthy(obj["meta"]) {
		return Verdict{Kind: LogEntry, Payload: payload}
	}
	if truthy(obj["configuration"]) {
		return Verdict{Kind: StatusSnapshot, Payload: payload}
	}
	return Verdict{Kind: Unrecognized, Payload: payload}
}

// ParsePayload decodes a raw JSON message into the untyped form Classify expects.
func ParsePayload(b []byte) (any, error) {
	var payload any
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", configurator.ErrMalformedMessage, err)
	}
	return payload, nil
}

// truthy follows the loose truth rules of the device's JSON producers:
// null, false, 0 and "" are false, everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		return t.String() != "0"
	case string:
		return t != ""
	default:
		return true
	}
}
