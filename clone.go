package configurator

// CloneValue deep copies the JSON-shaped values (maps, slices, scalars)
// found inside opaque records. Other types are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case InterfaceConfig:
		return t.Clone()
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string{}, t...)
	default:
		return v
	}
}

// CloneMap deep copies m. A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	return CloneValue(s).([]any)
}

func (c InterfaceConfig) Clone() InterfaceConfig {
	if c == nil {
		return nil
	}
	return InterfaceConfig(CloneMap(c))
}

func (n *NetworkConfig) Clone() *NetworkConfig {
	if n == nil {
		return nil
	}
	out := &NetworkConfig{NTP: n.NTP, SSH: n.SSH}
	if n.Interfaces != nil {
		out.Interfaces = make(map[string]InterfaceConfig, len(n.Interfaces))
		for name, iface := range n.Interfaces {
			out.Interfaces[name] = iface.Clone()
		}
	}
	return out
}

func (c Configuration) Clone() Configuration {
	out := c
	out.Network = c.Network.Clone()
	out.Hardware.Params = CloneMap(c.Hardware.Params)
	return out
}

func (s StatusSnapshot) Clone() StatusSnapshot {
	return StatusSnapshot{
		Location:              s.Location,
		MCUParams:             CloneMap(s.MCUParams),
		Configuration:         CloneMap(s.Configuration),
		InformationalSettings: CloneMap(s.InformationalSettings),
		Pins:                  CloneMap(s.Pins),
		UserEnv:               CloneMap(s.UserEnv),
		ProcessInfo: ProcessInfo{
			FarmEvents: cloneSlice(s.ProcessInfo.FarmEvents),
			Regimens:   cloneSlice(s.ProcessInfo.Regimens),
			Farmwares:  cloneSlice(s.ProcessInfo.Farmwares),
		},
	}
}

func (e LogEntry) Clone() LogEntry {
	out := e
	if e.Channels != nil {
		out.Channels = append([]string{}, e.Channels...)
	}
	return out
}
