package configurator

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonFalse = []byte("false")

func (k SSHKey) MarshalJSON() ([]byte, error) {
	if k == "" {
		return jsonFalse, nil
	}
	return json.Marshal(string(k))
}

func (k *SSHKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonFalse) || bytes.Equal(b, []byte("null")) {
		*k = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("ssh: expected public key or false: %w", err)
	}
	*k = SSHKey(s)
	return nil
}

// MarshalJSON writes a disabled network section as false.
func (c Configuration) MarshalJSON() ([]byte, error) {
	type plain Configuration
	out := struct {
		Network any `json:"network"`
		plain
	}{plain: plain(c)}
	if c.Network == nil {
		out.Network = false
	} else {
		out.Network = c.Network
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts false (or null) for a disabled network section and
// rejects true, which has no populated representation.
func (c *Configuration) UnmarshalJSON(b []byte) error {
	type plain Configuration
	in := struct {
		Network json.RawMessage `json:"network"`
		*plain
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	raw := bytes.TrimSpace(in.Network)
	switch {
	case len(raw) == 0, bytes.Equal(raw, jsonFalse), bytes.Equal(raw, []byte("null")):
		c.Network = nil
	case bytes.Equal(raw, []byte("true")):
		return fmt.Errorf("network: %w: true is not a network section", ErrInvalidParameter)
	default:
		var n NetworkConfig
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("network: %w", err)
		}
		if n.Interfaces == nil {
			n.Interfaces = map[string]InterfaceConfig{}
		}
		c.Network = &n
	}
	return nil
}
