package timeseries

// Row is one output row of a query: a split timestamp, a value, and a
// label list (empty for mean windows, per §4.5).
type Row struct {
	Sec    uint64
	Nsec   uint64
	Value  float64
	Labels []Label
}

// Query describes one request to Execute. The Has* fields mirror the
// qflags bits of the wire protocol's QUERY body; MeanWindowMs is only
// meaningful when Mean is set, MajorOf/MinorOf only when their matching
// Has* flag is set.
type Query struct {
	Mean       bool
	First      bool
	Last       bool
	HasMajorOf bool
	HasMinorOf bool
	Filter     bool

	MeanWindowMs uint64
	MajorOf      uint64
	MinorOf      uint64
	Labels       []Label
}

// GetRangeIndexes resolves the inclusive index range [lo, hi] covering
// every sample with timestamp in [majorOf, minorOf], expanding past
// search's binary-search result to absorb ties, per §4.5. ok is false when
// the range is empty (including majorOf > minorOf, or an empty
// timeseries).
func GetRangeIndexes(ts *Timeseries, majorOf, minorOf uint64) (lo, hi int, ok bool) {
	n := ts.Len()
	if n == 0 || majorOf > minorOf {
		return 0, -1, false
	}

	lo = ts.timestamps.search(majorOf)
	hi = ts.timestamps.search(minorOf) - 1
	for lo > 0 && ts.timestamps.at(lo-1) >= majorOf {
		lo--
	}
	for hi+1 < n && ts.timestamps.at(hi+1) <= minorOf {
		hi++
	}
	if lo > hi {
		return lo, hi, false
	}
	return lo, hi, true
}

func rowAt(ts *Timeseries, i int) Row {
	nanos := ts.timestamps.at(i)
	rec := ts.records[i]
	return Row{
		Sec:    nanos / 1_000_000_000,
		Nsec:   nanos % 1_000_000_000,
		Value:  rec.Value,
		Labels: rec.Labels,
	}
}

// Execute runs q against ts and returns the matching rows. Query shapes
// combine as documented in §4.5: a range narrows the candidate span before
// first/last/mean are applied to it; a filter instead replaces the
// candidate span entirely with the tag-index intersection of its label
// pairs. When both filter and mean are set, the filtered candidate set is
// windowed and averaged the same way a range candidate span is — filter
// first, then aggregate what's left; mean-window rows carry no labels
// either way.
func Execute(ts *Timeseries, q Query) []Row {
	if q.Filter {
		return executeFilter(ts, q)
	}

	lo, hi := 0, ts.Len()-1
	if q.HasMajorOf || q.HasMinorOf {
		majorOf, minorOf := q.MajorOf, q.MinorOf
		if !q.HasMajorOf && ts.Len() > 0 {
			majorOf = ts.timestamps.at(0)
		}
		if !q.HasMinorOf && ts.Len() > 0 {
			minorOf = ts.timestamps.at(ts.Len() - 1)
		}
		var ok bool
		lo, hi, ok = GetRangeIndexes(ts, majorOf, minorOf)
		if !ok {
			return nil
		}
	}

	switch {
	case lo > hi:
		return nil
	case q.First:
		return []Row{rowAt(ts, lo)}
	case q.Last:
		return []Row{rowAt(ts, hi)}
	case q.Mean:
		anchor := q.MajorOf
		if !q.HasMajorOf {
			anchor = ts.timestamps.at(lo)
		}
		return meanWindows(ts, rangeIndices(lo, hi), q.MeanWindowMs, anchor)
	default:
		rows := make([]Row, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			rows = append(rows, rowAt(ts, i))
		}
		return rows
	}
}

// rangeIndices expands the inclusive range [lo, hi] into the slice of
// indices it covers, the ascending-index shape meanWindows needs to also
// serve a non-contiguous filter candidate set.
func rangeIndices(lo, hi int) []int {
	indices := make([]int, hi-lo+1)
	for i := range indices {
		indices[i] = lo + i
	}
	return indices
}

// meanWindows partitions indices — ascending by timestamp, contiguous or
// not — into consecutive windowMs-wide windows anchored at anchorNs,
// emitting one row per non-empty window whose timestamp is the window's
// upper boundary and whose value is the arithmetic mean of the samples it
// contains. anchorNs is first advanced forward in windowMs steps while it
// remains strictly below the first selected sample's timestamp — a no-op
// when anchorNs already equals that timestamp, which is the case when no
// explicit range anchor was supplied.
func meanWindows(ts *Timeseries, indices []int, windowMs uint64, anchorNs uint64) []Row {
	windowNs := windowMs * 1_000_000
	if windowNs == 0 || len(indices) == 0 {
		return nil
	}

	for anchorNs < ts.timestamps.at(indices[0]) {
		anchorNs += windowNs
	}

	var rows []Row
	windowEnd := anchorNs + windowNs
	var sum float64
	count := 0

	for _, i := range indices {
		t := ts.timestamps.at(i)
		for t > windowEnd {
			if count > 0 {
				rows = append(rows, Row{Sec: windowEnd / 1_000_000_000, Nsec: windowEnd % 1_000_000_000, Value: sum / float64(count)})
				sum, count = 0, 0
			}
			windowEnd += windowNs
		}
		sum += ts.records[i].Value
		count++
	}
	if count > 0 {
		rows = append(rows, Row{Sec: windowEnd / 1_000_000_000, Nsec: windowEnd % 1_000_000_000, Value: sum / float64(count)})
	}
	return rows
}

func executeFilter(ts *Timeseries, q Query) []Row {
	if len(q.Labels) == 0 {
		return nil
	}

	var candidate []int
	for i, l := range q.Labels {
		indices, ok := ts.index.lookup(l.Name, l.Value)
		if !ok {
			return nil
		}
		if i == 0 {
			candidate = append([]int(nil), indices...)
		} else {
			candidate = intersectSorted(candidate, indices)
		}
	}

	if q.Mean && len(candidate) > 0 {
		anchor := q.MajorOf
		if !q.HasMajorOf {
			anchor = ts.timestamps.at(candidate[0])
		}
		return meanWindows(ts, candidate, q.MeanWindowMs, anchor)
	}

	rows := make([]Row, 0, len(candidate))
	for _, idx := range candidate {
		rows = append(rows, rowAt(ts, idx))
	}
	return rows
}
