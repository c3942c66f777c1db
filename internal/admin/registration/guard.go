package registration

import "sync"

// Guard tracks in-flight submissions by key (typically a session id) so a
// form rendered once cannot be submitted twice concurrently across requests.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard returns an empty Guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire claims key. The returned release func must be called once the
// submission finishes; ok is false when key is already claimed.
func (g *Guard) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return func() {}, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}
