package nav

import "sync"

// Navigation records one Push or Replace.
type Navigation struct {
	Path    string
	Replace bool
}

// Memory is an in-memory Router keeping a history stack.
type Memory struct {
	mu          sync.Mutex
	history     []string
	navigations []Navigation

	subsMu sync.RWMutex
	subs   map[int]func(string)
	order  []int
	nextID int
}

var _ Router = (*Memory)(nil)

// NewMemory starts the router at initial ("/" when empty).
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{
		history: []string{initial},
		subs:    make(map[int]func(string)),
	}
}

func (m *Memory) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PathOnly(m.history[len(m.history)-1])
}

// Location returns the current entry including its query string.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[len(m.history)-1]
}

func (m *Memory) Push(path string) {
	m.navigate(path, false)
}

func (m *Memory) Replace(path string) {
	m.navigate(path, true)
}

// Back pops the history stack. It reports false at the first entry.
func (m *Memory) Back() bool {
	m.mu.Lock()
	if len(m.history) == 1 {
		m.mu.Unlock()
		return false
	}
	m.history = m.history[:len(m.history)-1]
	current := PathOnly(m.history[len(m.history)-1])
	m.mu.Unlock()
	m.notify(current)
	return true
}

// Navigations returns every Push and Replace performed, in order.
func (m *Memory) Navigations() []Navigation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Navigation(nil), m.navigations...)
}

// Redirects returns the Replace navigations to path.
func (m *Memory) Redirects(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, nv := range m.navigations {
		if nv.Replace && nv.Path == path {
			n++
		}
	}
	return n
}

func (m *Memory) Subscribe(fn func(path string)) (unsubscribe func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

func (m *Memory) navigate(path string, replace bool) {
	m.mu.Lock()
	current := m.history[len(m.history)-1]
	if replace && current == path {
		m.mu.Unlock()
		return
	}
	if replace {
		m.history[len(m.history)-1] = path
	} else {
		m.history = append(m.history, path)
	}
	m.navigations = append(m.navigations, Navigation{Path: path, Replace: replace})
	m.mu.Unlock()

	if PathOnly(current) != PathOnly(path) {
		m.notify(PathOnly(path))
	}
}

func (m *Memory) notify(path string) {
	m.subsMu.RLock()
	fns := make([]func(string), 0, len(m.order))
	for _, id := range m.order {
		fns = append(fns, m.subs[id])
	}
	m.subsMu.RUnlock()
	for _, fn := range fns {
		fn(path)
	}
}
