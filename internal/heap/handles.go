package heap

import "github.com/charygao/gypsum/internal/memory"

// HandleScope is a scoped acquisition of a slot array (spec §4.2): handles
// created inside are invalidated when the scope closes. Scopes nest
// strictly — Close must be called on the topmost open scope.
type HandleScope struct {
	heap  *Heap
	slots []memory.Address
	open  bool
}

// OpenScope begins a new handle scope nested inside any currently open
// scope.
func (h *Heap) OpenScope() *HandleScope {
	s := &HandleScope{heap: h, open: true}
	h.scopes = append(h.scopes, s)
	return s
}

// Close invalidates every handle created in this scope. Panics if s is
// not the topmost open scope, enforcing strict nesting.
func (s *HandleScope) Close() {
	h := s.heap
	if len(h.scopes) == 0 || h.scopes[len(h.scopes)-1] != s {
		panic("heap: HandleScope.Close: scope is not the topmost open scope")
	}
	h.scopes = h.scopes[:len(h.scopes)-1]
	s.open = false
	s.slots = nil
}

// Handle is a GC-safe indirect reference into a HandleScope's slot array:
// relocation updates the slot in place, so dereferencing a live handle
// always yields the block's current address.
type Handle struct {
	scope *HandleScope
	slot  int
}

// New creates a handle for address a within scope s.
func (s *HandleScope) New(a memory.Address) Handle {
	if !s.open {
		panic("heap: HandleScope.New: scope is closed")
	}
	s.slots = append(s.slots, a)
	return Handle{scope: s, slot: len(s.slots) - 1}
}

func (h Handle) Get() memory.Address {
	if !h.scope.open {
		panic("heap: Handle.Get: owning scope has been closed")
	}
	return h.scope.slots[h.slot]
}

// PersistentHandle survives until explicitly Released, independent of any
// HandleScope (spec §4.2).
type PersistentHandle struct {
	pool *persistentPool
	id   int
}

func (h *Heap) NewPersistent(a memory.Address) PersistentHandle {
	id := h.persistent.alloc(a)
	return PersistentHandle{pool: h.persistent, id: id}
}

func (p PersistentHandle) Get() memory.Address {
	return p.pool.get(p.id)
}

func (p PersistentHandle) Set(a memory.Address) {
	p.pool.set(p.id, a)
}

func (p PersistentHandle) Release() {
	p.pool.free(p.id)
}

// persistentPool is a simple free-list-backed slot array for persistent
// handles, analogous to a HandleScope's slots but with explicit lifetime.
type persistentPool struct {
	slots []memory.Address
	live  []bool
	free  []int
}

func newPersistentPool() *persistentPool {
	return &persistentPool{}
}

func (p *persistentPool) alloc(a memory.Address) int {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		p.slots[id] = a
		p.live[id] = true
		return id
	}
	p.slots = append(p.slots, a)
	p.live = append(p.live, true)
	return len(p.slots) - 1
}

func (p *persistentPool) get(id int) memory.Address {
	if !p.live[id] {
		panic("heap: PersistentHandle: use after Release")
	}
	return p.slots[id]
}

func (p *persistentPool) set(id int, a memory.Address) {
	if !p.live[id] {
		panic("heap: PersistentHandle: use after Release")
	}
	p.slots[id] = a
}

func (p *persistentPool) free(id int) {
	p.live[id] = false
	p.free = append(p.free, id)
}

// ForEachRoot calls fn once per live handle-scope slot and persistent
// handle, passing a pointer so the collector can update it in place after
// relocating the block it refers to (spec §4.7 roots).
func (h *Heap) ForEachRoot(fn func(slot *memory.Address)) {
	for _, s := range h.scopes {
		for i := range s.slots {
			fn(&s.slots[i])
		}
	}
	for i := range h.persistent.slots {
		if h.persistent.live[i] {
			fn(&h.persistent.slots[i])
		}
	}
}
