package classify

// Structural recognises instruction trees shaped as
// {"kind": string, "args": object, "body"?: [node, ...]} at every level.
func Structural(payload any) bool {
	return isNode(payload, 0)
}

const maxScriptDepth = 64

func isNode(v any, depth int) bool {
	if depth > maxScriptDepth {
		return false
	}
	node, ok := v.(map[string]any)
	if !ok {
		return false
	}
	kind, ok := node["kind"].(string)
	if !ok || kind == "" {
		return false
	}
	if _, ok := node["args"].(map[string]any); !ok {
		return false
	}
	body, present := node["body"]
	if !present || body == nil {
		return true
	}
	children, ok := body.([]any)
	if !ok {
		return false
	}
	for _, child := range children {
		if !isNode(child, depth+1) {
			return false
		}
	}
	return true
}
