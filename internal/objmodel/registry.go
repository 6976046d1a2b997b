package objmodel

import "github.com/charygao/gypsum/internal/types"

// MetaRegistry assigns a stable MetaID to every Meta built during package
// loading, and maps back from MetaID to Meta for the heap and collector.
// It is shared by every Package a VM loads, so that a MetaID found in any
// block's header unambiguously identifies one Meta regardless of which
// package defined its class.
type MetaRegistry struct {
	metas []*types.Meta // index 0 unused, so MetaID 0 stays invalid
}

func NewMetaRegistry() *MetaRegistry {
	return &MetaRegistry{metas: make([]*types.Meta, 1)}
}

// Register assigns a and returns a fresh MetaID for m.
func (r *MetaRegistry) Register(m *types.Meta) MetaID {
	id := MetaID(len(r.metas))
	r.metas = append(r.metas, m)
	return id
}

func (r *MetaRegistry) Lookup(id MetaID) *types.Meta {
	if int(id) >= len(r.metas) {
		panic("objmodel: MetaRegistry.Lookup: unknown MetaID")
	}
	return r.metas[id]
}

// RegisterMeta registers m with r and caches the assigned MetaID on m
// itself (types.Meta.ID), so code allocating instances later (e.g.
// internal/interp's ALLOCOBJ/ALLOCARR) can read a class's MetaID straight
// off its Meta instead of threading a registry/Meta pair everywhere an
// instance might be created.
func RegisterMeta(r *MetaRegistry, m *types.Meta) MetaID {
	id := r.Register(m)
	m.ID = int(id)
	return id
}
