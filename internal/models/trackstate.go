package models

import "slices"

// TrackState holds the retained tracks in playlist order.
//
// No two records share a normalized name or a URI. Records enter only through [TrackState.Insert]
// and leave only through [TrackState.Evict].
type TrackState struct {
	records []TrackRecord
	names   map[string]struct{}
	uris    map[string]struct{}
}

// NewTrackState loads records in order. A record that repeats an earlier name or URI is dropped.
func NewTrackState(records []TrackRecord) *TrackState {
	s := &TrackState{
		records: make([]TrackRecord, 0, len(records)),
		names:   make(map[string]struct{}, len(records)),
		uris:    make(map[string]struct{}, len(records)),
	}
	for _, r := range records {
		s.Insert(r)
	}
	return s
}

func (s *TrackState) Len() int { return len(s.records) }

// Records returns a copy of the records in their current order.
func (s *TrackState) Records() []TrackRecord {
	return slices.Clone(s.records)
}

// URIs returns the track URIs in their current order.
func (s *TrackState) URIs() []string {
	uris := make([]string, len(s.records))
	for i, r := range s.records {
		uris[i] = r.URI
	}
	return uris
}

// Has reports whether r collides with a retained record by normalized name or URI.
func (s *TrackState) Has(r TrackRecord) bool {
	if _, ok := s.uris[r.URI]; ok {
		return true
	}
	_, ok := s.names[r.NormalizedName()]
	return ok
}

// Insert appends r unless it collides with a retained record. It reports whether r was added.
func (s *TrackState) Insert(r TrackRecord) bool {
	if s.Has(r) {
		return false
	}
	s.records = append(s.records, r)
	s.names[r.NormalizedName()] = struct{}{}
	s.uris[r.URI] = struct{}{}
	return true
}

// Evict removes every record for which keep returns false and returns the removed records.
func (s *TrackState) Evict(keep func(TrackRecord) bool) []TrackRecord {
	var evicted []TrackRecord
	kept := s.records[:0]
	for _, r := range s.records {
		if keep(r) {
			kept = append(kept, r)
			continue
		}
		evicted = append(evicted, r)
		delete(s.names, r.NormalizedName())
		delete(s.uris, r.URI)
	}
	clear(s.records[len(kept):])
	s.records = kept
	return evicted
}

// SortStable reorders the records by cmp, keeping the current order of equal records.
func (s *TrackState) SortStable(cmp func(a, b TrackRecord) int) {
	slices.SortStableFunc(s.records, cmp)
}
