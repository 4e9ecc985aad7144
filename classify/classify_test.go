package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmidt-org/talaria/configurator"
)

func TestClassifyOrder(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    Kind
	}{
		{"meta wins over configuration", map[string]any{"meta": map[string]any{"type": "info"}, "configuration": map[string]any{}}, LogEntry},
		{"status", map[string]any{"configuration": map[string]any{"os": 1}}, StatusSnapshot},
		{"empty object", map[string]any{}, Unrecognized},
		{"falsy meta falls through", map[string]any{"meta": nil, "configuration": map[string]any{}}, StatusSnapshot},
		{"falsy configuration", map[string]any{"configuration": false}, Unrecognized},
		{"empty object configuration is truthy", map[string]any{"configuration": map[string]any{}}, StatusSnapshot},
		{"array", []any{1, 2}, Unrecognized},
		{"string", "hello", Unrecognized},
		{"nil", nil, Unrecognized},
		{"script", map[string]any{"kind": "move_absolute", "args": map[string]any{}}, RemoteScript},
		{"script with meta stays script", map[string]any{"kind": "sequence", "args": map[string]any{}, "meta": map[string]any{}}, RemoteScript},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.payload, Structural)
			assert.Equal(t, tc.want, v.Kind)
			assert.Equal(t, tc.payload, v.Payload)
		})
	}
}

func TestClassifyValidatorIsBlackBox(t *testing.T) {
	calls := 0
	always := func(any) bool { calls++; return true }

	v := Classify(map[string]any{"meta": map[string]any{}}, always)
	assert.Equal(t, RemoteScript, v.Kind)
	assert.Equal(t, 1, calls)

	v = Classify(map[string]any{"kind": "x", "args": map[string]any{}}, nil)
	assert.Equal(t, Unrecognized, v.Kind)

	v = Classify(map[string]any{"kind": "x", "args": map[string]any{}}, NoScripts)
	assert.Equal(t, Unrecognized, v.Kind)
}

func TestStructural(t *testing.T) {
	assert.True(t, Structural(map[string]any{
		"kind": "sequence",
		"args": map[string]any{"version": 4.0},
		"body": []any{
			map[string]any{"kind": "wait", "args": map[string]any{"milliseconds": 100.0}},
		},
	}))
	assert.False(t, Structural(map[string]any{"kind": "sequence"}))
	assert.False(t, Structural(map[string]any{"kind": "", "args": map[string]any{}}))
	assert.False(t, Structural(map[string]any{
		"kind": "sequence",
		"args": map[string]any{},
		"body": []any{map[string]any{"kind": "wait"}},
	}))
	assert.False(t, Structural(map[string]any{"kind": "x", "args": map[string]any{}, "body": "nope"}))
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(`{"meta":{"type":"info"},"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, LogEntry, Classify(p, NoScripts).Kind)

	_, err = ParsePayload([]byte(`{not json`))
	assert.True(t, errors.Is(err, configurator.ErrMalformedMessage))
}

func TestDecodeLog(t *testing.T) {
	p, err := ParsePayload([]byte(`{"meta":{"x":1,"y":2,"z":3,"type":"warn"},"message":"low water","channels":["toast"],"created_at":1500000000}`))
	require.NoError(t, err)
	entry, err := DecodeLog(p)
	require.NoError(t, err)
	assert.Equal(t, configurator.LogWarn, entry.Meta.Type)
	assert.Equal(t, 2.0, entry.Meta.Y)
	assert.Equal(t, "low water", entry.Message)
	assert.Equal(t, []string{"toast"}, entry.Channels)
	assert.Equal(t, int64(1500000000), entry.CreatedAt)

	_, err = DecodeLog(map[string]any{"meta": map[string]any{}, "message": 12.0})
	assert.True(t, errors.Is(err, configurator.ErrMalformedMessage))
}

func TestDecodeStatus(t *testing.T) {
	full := map[string]any{
		"location":               []any{1.0, 2.0, 3.0},
		"mcu_params":             map[string]any{},
		"configuration":          map[string]any{"x": 1.0},
		"informational_settings": map[string]any{"sync_status": "synced"},
		"pins":                   map[string]any{},
		"user_env":               map[string]any{},
		"process_info":           map[string]any{"farm_events": []any{}, "regimens": []any{}, "farmwares": []any{}},
	}
	snap, err := DecodeStatus(full)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, snap.Location)
	assert.Equal(t, "synced", snap.InformationalSettings["sync_status"])

	partial := map[string]any{"configuration": map[string]any{"x": 1.0}}
	_, err = DecodeStatus(partial)
	assert.True(t, errors.Is(err, configurator.ErrMalformedMessage))

	_, err = DecodeStatus("nope")
	assert.True(t, errors.Is(err, configurator.ErrMalformedMessage))

	for _, loc := range []any{
		[]any{1.0, 2.0},
		[]any{1.0, 2.0, 3.0, 4.0},
		[]any{1.0, "2", 3.0},
		nil,
	} {
		bad := map[string]any{}
		for k, v := range full {
			bad[k] = v
		}
		bad["location"] = loc
		_, err = DecodeStatus(bad)
		assert.True(t, errors.Is(err, configurator.ErrMalformedMessage), "location %v", loc)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "remote_script", RemoteScript.String())
	assert.Equal(t, "log", LogEntry.String())
	assert.Equal(t, "status", StatusSnapshot.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
