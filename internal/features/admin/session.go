package admin

import "sync"

// SessionRegistry — множество операторов, прошедших вход.
// Сессии не истекают и не сохраняются: живут до выхода или перезапуска.
type SessionRegistry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{ids: make(map[int64]struct{})}
}

func (r *SessionRegistry) Grant(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = struct{}{}
}

func (r *SessionRegistry) Revoke(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, id)
}

func (r *SessionRegistry) IsActive(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

// Count — число активных сессий (для статистики).
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
