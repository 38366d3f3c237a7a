package models

// Registry is a read-only view of the tracked artists, in registry order.
type Registry struct {
	artists []Artist
	ids     map[string]struct{}
}

// NewRegistry builds a registry from artists. Repeated IDs keep their first occurrence.
func NewRegistry(artists []Artist) Registry {
	r := Registry{
		artists: make([]Artist, 0, len(artists)),
		ids:     make(map[string]struct{}, len(artists)),
	}
	for _, a := range artists {
		if _, ok := r.ids[a.ID]; ok {
			continue
		}
		r.ids[a.ID] = struct{}{}
		r.artists = append(r.artists, a)
	}
	return r
}

// Contains reports whether id is tracked.
func (r Registry) Contains(id string) bool {
	_, ok := r.ids[id]
	return ok
}

// Artists returns a copy of the tracked artists.
func (r Registry) Artists() []Artist {
	out := make([]Artist, len(r.artists))
	copy(out, r.artists)
	return out
}

func (r Registry) Len() int { return len(r.artists) }
