// Package pluginconfig owns the per-vehicle configuration file: its schema,
// the upgrade of deprecated fields and the reconciliation of stored data
// against the current defaults.
package pluginconfig

// Tree is a decoded configuration document. Values are scalars, nested Trees
// or []any sequences.
type Tree = map[string]any

// Reconcile backfills stored with every key of defaults it is missing. The
// defaults are the schema authority for nested trees: a stored value where a
// tree is expected is replaced wholesale. Stored scalars always win and keys
// unknown to defaults are kept. It reports whether stored was modified.
func Reconcile(defaults, stored Tree) bool {
	changed := false

	for key, defaultValue := range defaults {
		storedValue, ok := stored[key]
		if !ok {
			stored[key] = cloneValue(defaultValue)
			changed = true
			continue
		}

		defaultTree, ok := defaultValue.(Tree)
		if !ok {
			continue
		}

		storedTree, ok := storedValue.(Tree)
		if !ok {
			stored[key] = cloneValue(defaultTree)
			changed = true
			continue
		}

		if Reconcile(defaultTree, storedTree) {
			changed = true
		}
	}

	return changed
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Tree:
		out := make(Tree, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}
