package roi

import "sync"

// Engine computes ROI projections and memoizes recent results.
// A zero size disables the memo. Engine is safe for concurrent use.
type Engine struct {
	size int

	mu    sync.Mutex
	memo  map[Inputs]Results
	order []Inputs
	hits  uint64
}

// NewEngine creates an engine that remembers up to size distinct inputs.
func NewEngine(size int) *Engine {
	if size < 0 {
		size = 0
	}
	return &Engine{
		size: size,
		memo: make(map[Inputs]Results, size),
	}
}

// Compute returns the same Results as the package-level Compute.
// The second return value reports whether the result came from the memo.
func (e *Engine) Compute(in Inputs) (Results, bool) {
	in = in.Sanitize()
	if e == nil || e.size == 0 {
		return Compute(in), false
	}

	e.mu.Lock()
	if res, ok := e.memo[in]; ok {
		e.hits++
		e.mu.Unlock()
		return res, true
	}
	e.mu.Unlock()

	res := Compute(in)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.memo[in]; ok {
		return res, false
	}
	if len(e.order) >= e.size {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.memo, oldest)
	}
	e.memo[in] = res
	e.order = append(e.order, in)
	return res, false
}

// Len returns the number of memoized inputs.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.memo)
}

// Hits returns how many computations were served from the memo.
func (e *Engine) Hits() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}
