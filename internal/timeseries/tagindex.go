package timeseries

// Label is a (name, value) tag pair attached to a sample.
type Label struct {
	Name  string
	Value string
}

// tagIndex is the two-level label-name -> label-value -> record-indices
// mapping described by the tag index component. It stores back-indices into
// the owning timeseries' record vector rather than record pointers: the
// vector is append-only for the lifetime of the timeseries, so an int is a
// stable handle, and the whole index is invalidated in one step when the
// timeseries itself is torn down.
type tagIndex struct {
	names map[string]map[string][]int
}

func newTagIndex() *tagIndex {
	return &tagIndex{names: make(map[string]map[string][]int)}
}

// add records that the sample at recordIndex carries label (name, value).
// Every (name, value) pair gets its own entry lazily; add never removes or
// rewrites an existing entry, only appends to it.
func (idx *tagIndex) add(name, value string, recordIndex int) {
	values, ok := idx.names[name]
	if !ok {
		values = make(map[string][]int)
		idx.names[name] = values
	}
	values[value] = append(values[value], recordIndex)
}

// lookup returns the record indices carrying label (name, value), in the
// order they were added (insertion order), and whether the pair exists at
// all in the index.
func (idx *tagIndex) lookup(name, value string) ([]int, bool) {
	values, ok := idx.names[name]
	if !ok {
		return nil, false
	}
	indices, ok := values[value]
	return indices, ok
}

// intersectSorted returns the sorted intersection of a and b.
func intersectSorted(a, b []int) []int {
	seen := make(map[int]struct{}, len(a))
	for _, i := range a {
		seen[i] = struct{}{}
	}
	out := make([]int, 0, min(len(a), len(b)))
	for _, i := range b {
		if _, ok := seen[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
