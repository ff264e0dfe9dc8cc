package delta

// Merge unions the per-path maps of target and source for each of the nine
// tags. On a path collision within one tag, source's value wins — callers
// that need to collapse across tags (e.g. a $set followed by a $unset on
// the same path) must apply in emission order instead; Merge never looks
// across tags.
func Merge(target, source Delta) Delta {
	out := Clone(target)

	for k, v := range source.Set {
		out.Set[k] = v
	}

	for k, v := range source.Unset {
		out.Unset[k] = v
	}

	for k, v := range source.Push {
		out.Push[k] = v
	}

	for k, v := range source.Append {
		out.Append[k] = append([]any(nil), v...)
	}

	for k, v := range source.Prepend {
		out.Prepend[k] = append([]any(nil), v...)
	}

	for k, v := range source.Pop {
		out.Pop[k] = v
	}

	for k, v := range source.Pull {
		out.Pull[k] = v
	}

	for k, v := range source.AddToSet {
		out.AddToSet[k] = v
	}

	for k, v := range source.Splice {
		out.Splice[k] = append([]any(nil), v...)
	}

	return out
}
