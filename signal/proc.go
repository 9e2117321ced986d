package signal

import "sync"

// Proc is a named procedure. It reads its arguments from cd and writes its
// results back into it.
type Proc func(cd *CallData)

// ProcHandler is a table of named procedures
type ProcHandler struct {
	mu    sync.RWMutex
	procs map[string]Proc
}

// NewProcHandler creates an empty procedure table
func NewProcHandler() *ProcHandler {
	return &ProcHandler{procs: make(map[string]Proc)}
}

// Add registers fn under name, replacing any previous procedure
func (p *ProcHandler) Add(name string, fn Proc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.procs[name] = fn
}

// Remove drops the procedure registered under name
func (p *ProcHandler) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.procs, name)
}

// Call runs the named procedure and reports whether it exists
func (p *ProcHandler) Call(name string, cd *CallData) bool {
	p.mu.RLock()
	fn, ok := p.procs[name]
	p.mu.RUnlock()
	if !ok || fn == nil {
		return false
	}
	if cd == nil {
		cd = NewCallData()
	}
	fn(cd)
	return true
}
