// Package merge applies partial updates onto network interface records.
package merge

import "github.com/xmidt-org/talaria/configurator"

// MergeInterface returns a new record holding every key of existing, with each
// key present in patch overwritten by the patch value. A nil existing yields a
// copy of patch. Values are not type checked and neither argument is modified.
func MergeInterface(existing, patch configurator.InterfaceConfig) configurator.InterfaceConfig {
	out := make(configurator.InterfaceConfig, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = configurator.CloneValue(v)
	}
	for k, v := range patch {
		out[k] = configurator.CloneValue(v)
	}
	return out
}
