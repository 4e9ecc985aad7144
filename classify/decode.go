package classify

import (
	"encoding/json"
	"fmt"

	"github.com/xmidt-org/talaria/configurator"
)

var snapshotFields = []string{
	"location",
	"mcu_params",
	"configuration",
	"informational_settings",
	"pins",
	"user_env",
	"process_info",
}

// DecodeLog converts a LogEntry verdict payload into a typed entry.
func DecodeLog(payload any) (configurator.LogEntry, error) {
	var entry configurator.LogEntry
	if err := remarshal(payload, &entry); err != nil {
		return entry, fmt.Errorf("%w: log entry: %v", configurator.ErrMalformedMessage, err)
	}
	if entry.Channels == nil {
		entry.Channels = []string{}
	}
	return entry, nil
}

// DecodeStatus converts a StatusSnapshot verdict payload into a typed
// snapshot. Partial snapshots are rejected.
func DecodeStatus(payload any) (configurator.StatusSnapshot, error) {
	var snap configurator.StatusSnapshot
	obj, ok := payload.(map[string]any)
	if !ok {
		return snap, fmt.Errorf("%w: status is not an object", configurator.ErrMalformedMessage)
	}
	for _, f := range snapshotFields {
		if _, ok := obj[f]; !ok {
			return snap, fmt.Errorf("%w: partial status, missing %q", configurator.ErrMalformedMessage, f)
		}
	}
	if err := checkLocation(obj["location"]); err != nil {
		return snap, err
	}
	if err := remarshal(payload, &snap); err != nil {
		return snap, fmt.Errorf("%w: status: %v", configurator.ErrMalformedMessage, err)
	}
	return snap, nil
}

// checkLocation requires exactly three numeric coordinates; a shorter or
// longer array would otherwise be padded or truncated on decode.
func checkLocation(v any) error {
	coords, ok := v.([]any)
	if !ok || len(coords) != 3 {
		return fmt.Errorf("%w: status location must be [x, y, z]", configurator.ErrMalformedMessage)
	}
	for _, c := range coords {
		switch c.(type) {
		case float64, json.Number:
		default:
			return fmt.Errorf("%w: status location holds %T", configurator.ErrMalformedMessage, c)
		}
	}
	return nil
}

func remarshal(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
