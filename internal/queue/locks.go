package queue

import "sync"

// assistantLocks serializes admission/promotion per assistant within this
// process. Queues for different assistants proceed fully in parallel; the
// database transaction (with row locks on MySQL) covers multi-node setups.
type assistantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAssistantLocks() *assistantLocks {
	return &assistantLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for assistantID and returns its unlock func.
func (l *assistantLocks) lock(assistantID string) func() {
	l.mu.Lock()
	m, ok := l.locks[assistantID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[assistantID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
