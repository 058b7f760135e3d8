package timeseries

// Registry is the process-wide (or, under a sharded reactor deployment,
// per-reactor) name -> Timeseries mapping. It has no lock: the concurrency
// model gives each reactor goroutine exclusive ownership of its registry
// for the lifetime of the process, so every Registry method must only ever
// be called from that one goroutine. A sharded deployment runs one Registry
// per reactor and never shares one across threads.
type Registry struct {
	series map[string]*Timeseries
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{series: make(map[string]*Timeseries)}
}

// Get looks up name by exact match.
func (r *Registry) Get(name string) (*Timeseries, bool) {
	ts, ok := r.series[name]
	return ts, ok
}

// Create implements the CREATE_TS state transition: ABSENT -> EXISTS on a
// new name, or a no-op on a name that already exists (idempotent create).
// created reports which of those happened; the dispatcher logs the
// already-exists case at debug and still responds ACK OK either way.
func (r *Registry) Create(name string, retention uint32) (ts *Timeseries, created bool) {
	if ts, ok := r.series[name]; ok {
		return ts, false
	}
	ts = NewTimeseries(name, retention)
	r.series[name] = ts
	return ts, true
}

// GetOrCreate implements ADDPOINTS' auto-create behavior: ABSENT ->
// EXISTS(name, retention=0) the first time a name is written to.
func (r *Registry) GetOrCreate(name string) (ts *Timeseries, created bool) {
	return r.Create(name, 0)
}

// Delete implements the DELETE_TS state transition: EXISTS -> ABSENT.
// existed reports whether name was present, so the dispatcher can
// distinguish ACK OK from ACK NOT_FOUND.
func (r *Registry) Delete(name string) (existed bool) {
	if _, ok := r.series[name]; !ok {
		return false
	}
	delete(r.series, name)
	return true
}

// Len reports the number of live timeseries.
func (r *Registry) Len() int { return len(r.series) }
