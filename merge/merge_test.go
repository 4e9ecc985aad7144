package merge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xmidt-org/talaria/configurator"
)

func TestMergeInterfacePreservesAndOverwrites(t *testing.T) {
	cases := []struct {
		name     string
		existing configurator.InterfaceConfig
		patch    configurator.InterfaceConfig
	}{
		{"nil existing", nil, configurator.InterfaceConfig{"type": "wired"}},
		{"empty patch", configurator.InterfaceConfig{"type": "wired", "default": "dhcp"}, configurator.InterfaceConfig{}},
		{"nil patch", configurator.InterfaceConfig{"type": "wired"}, nil},
		{"overlap", configurator.InterfaceConfig{"type": "wired", "default": "dhcp"}, configurator.InterfaceConfig{"default": false, "ntp": true}},
		{"nested value replaced", configurator.InterfaceConfig{"settings": map[string]any{"ssid": "a", "psk": "b"}}, configurator.InterfaceConfig{"settings": map[string]any{"ssid": "c"}}},
		{"nil value wins", configurator.InterfaceConfig{"default": "dhcp"}, configurator.InterfaceConfig{"default": nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeInterface(tc.existing, tc.patch)
			for k, v := range tc.existing {
				if _, patched := tc.patch[k]; !patched {
					assert.Equal(t, v, got[k], "key %s should be preserved", k)
				}
			}
			for k, v := range tc.patch {
				assert.Equal(t, v, got[k], "key %s should come from patch", k)
			}
			assert.Len(t, got, len(union(tc.existing, tc.patch)))
		})
	}
}

func TestMergeInterfaceGenerated(t *testing.T) {
	for i := 0; i < 50; i++ {
		existing := configurator.InterfaceConfig{}
		patch := configurator.InterfaceConfig{}
		for j := 0; j < i%7; j++ {
			existing[fmt.Sprintf("k%d", j)] = j
		}
		for j := i % 3; j < i%5+2; j++ {
			patch[fmt.Sprintf("k%d", j)] = fmt.Sprintf("p%d", j)
		}
		got := MergeInterface(existing, patch)
		for k, v := range existing {
			if pv, ok := patch[k]; ok {
				assert.Equal(t, pv, got[k])
			} else {
				assert.Equal(t, v, got[k])
			}
		}
		for k, v := range patch {
			assert.Equal(t, v, got[k])
		}
	}
}

func TestMergeInterfaceDoesNotAlias(t *testing.T) {
	existing := configurator.InterfaceConfig{"settings": map[string]any{"ssid": "home"}}
	patch := configurator.InterfaceConfig{"extra": map[string]any{"k": "v"}}

	got := MergeInterface(existing, patch)
	got["settings"].(map[string]any)["ssid"] = "changed"
	got["extra"].(map[string]any)["k"] = "changed"
	got["type"] = "wireless"

	assert.Equal(t, "home", existing["settings"].(map[string]any)["ssid"])
	assert.Equal(t, "v", patch["extra"].(map[string]any)["k"])
	assert.NotContains(t, existing, "type")
}

func union(a, b configurator.InterfaceConfig) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
