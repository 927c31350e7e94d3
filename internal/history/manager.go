package history

// Manager is a linear undo stack with a current index. Pushing after an
// undo discards the redo tail.
type Manager struct {
	entries   []*Entry
	index     int
	limit     int
	restoring bool
}

// NewManager returns an empty manager. A positive limit bounds the number
// of entries kept; the oldest are dropped first.
func NewManager(limit int) *Manager {
	if limit < 0 {
		limit = 0
	}
	return &Manager{index: -1, limit: limit}
}

// Push appends e after the current index. It reports false and keeps the
// stack unchanged when a restore is in progress or e matches the current
// entry.
func (m *Manager) Push(e *Entry) bool {
	if e == nil || m.restoring {
		return false
	}
	if cur := m.Current(); cur != nil && cur.Equal(e) {
		return false
	}
	for i := m.index + 1; i < len(m.entries); i++ {
		m.entries[i] = nil
	}
	m.entries = append(m.entries[:m.index+1], e)
	m.index = len(m.entries) - 1
	if m.limit > 0 && len(m.entries) > m.limit {
		drop := len(m.entries) - m.limit
		for i := 0; i < drop; i++ {
			m.entries[i] = nil
		}
		m.entries = append([]*Entry(nil), m.entries[drop:]...)
		m.index -= drop
	}
	return true
}

// Undo steps back one entry and returns it. It is a no-op at the start.
func (m *Manager) Undo() (*Entry, bool) {
	if m.index <= 0 {
		return nil, false
	}
	m.index--
	return m.entries[m.index], true
}

// Redo steps forward one entry and returns it. It is a no-op at the end.
func (m *Manager) Redo() (*Entry, bool) {
	if m.index < 0 || m.index >= len(m.entries)-1 {
		return nil, false
	}
	m.index++
	return m.entries[m.index], true
}

// Seek moves the index back to i, used to roll back after a failed restore.
func (m *Manager) Seek(i int) bool {
	if i < 0 || i >= len(m.entries) {
		return false
	}
	m.index = i
	return true
}

// Current returns the entry at the index, or nil when empty.
func (m *Manager) Current() *Entry {
	if m.index < 0 {
		return nil
	}
	return m.entries[m.index]
}

// Index returns the current position, -1 when empty.
func (m *Manager) Index() int { return m.index }

// Len returns the number of entries.
func (m *Manager) Len() int { return len(m.entries) }

// CanUndo reports whether Undo would move.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether Redo would move.
func (m *Manager) CanRedo() bool { return m.index >= 0 && m.index < len(m.entries)-1 }

// BeginRestore marks a restore in progress. Pushes are ignored until
// EndRestore.
func (m *Manager) BeginRestore() { m.restoring = true }

// EndRestore clears the restore guard.
func (m *Manager) EndRestore() { m.restoring = false }

// Restoring reports whether a restore is in progress.
func (m *Manager) Restoring() bool { return m.restoring }
