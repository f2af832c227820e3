package metadata

// Find walks path through m and returns the leaf value.
//
// Intermediate segments descend into mappings. When an intermediate value is a
// list of blocks, the first block that sets the next segment is selected.
// The bool result is false whenever a segment cannot be resolved.
func (m Map) Find(path []string) (Value, bool) {
	if len(path) == 0 {
		return Null(), false
	}
	cur := m
	for i, seg := range path {
		child, ok := cur[seg]
		if !ok {
			return Null(), false
		}
		if i == len(path)-1 {
			return child, true
		}

		next := path[i+1]
		if items, ok := child.List(); ok {
			block, found := firstBlockWith(items, next)
			if !found {
				return Null(), false
			}
			cur = block
			continue
		}

		mm, ok := child.Map()
		if !ok {
			return Null(), false
		}
		cur = mm
	}
	return Null(), false
}

func firstBlockWith(items []Value, key string) (Map, bool) {
	for _, item := range items {
		mm, ok := item.Map()
		if !ok {
			continue
		}
		if v, ok := mm[key]; ok && v.Truthy() {
			return mm, true
		}
	}
	return nil, false
}

// Strings flattens v into a string slice: a string is split with split, a
// list yields the text of each element. Anything else yields an empty slice.
func (v Value) Strings(split func(string) []string) []string {
	if s, ok := v.Str(); ok {
		return split(s)
	}
	items, ok := v.List()
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Text())
	}
	return out
}
