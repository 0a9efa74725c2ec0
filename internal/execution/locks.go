package execution

import "sync"

// instructionLocks guarantees at most one in-flight execution per
// instruction id. The execute-then-update-status sequence is not
// atomic, so a second concurrent run on the same instruction would
// double-apply side effects; it is rejected instead of queued.
type instructionLocks struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newInstructionLocks() *instructionLocks {
	return &instructionLocks{inFlight: make(map[string]struct{})}
}

// acquire reports whether the caller now owns the instruction. A false
// return means another execution is in flight.
func (l *instructionLocks) acquire(instructionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[instructionID]; busy {
		return false
	}
	l.inFlight[instructionID] = struct{}{}
	return true
}

func (l *instructionLocks) release(instructionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, instructionID)
}
