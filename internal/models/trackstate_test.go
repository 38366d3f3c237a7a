package models

import (
	"cmp"
	"slices"
	"strings"
	"testing"
	"time"
)

func record(uri, name, artistID string) TrackRecord {
	return TrackRecord{URI: uri, Name: name, ArtistID: artistID, ArtistName: artistID, AddedAt: time.Now()}
}

func TestNewTrackState(t *testing.T) {
	state := NewTrackState([]TrackRecord{
		record("spotify:track:1", "Night Drive", "a"),
		record("spotify:track:2", "night  drive", "b"),
		record("spotify:track:1", "Other Name", "a"),
		record("spotify:track:3", "Sunrise", "a"),
	})

	if state.Len() != 2 {
		t.Fatalf("expected 2 records after dropping duplicates, got %d", state.Len())
	}
	if got := state.URIs(); !slices.Equal(got, []string{"spotify:track:1", "spotify:track:3"}) {
		t.Errorf("URIs() = %v", got)
	}
}

func TestTrackStateInsert(t *testing.T) {
	state := NewTrackState(nil)

	tc := []struct {
		name   string
		record TrackRecord
		want   bool
	}{
		{name: "new record", record: record("spotify:track:1", "Night Drive", "a"), want: true},
		{name: "same name different case", record: record("spotify:track:2", "NIGHT DRIVE", "b"), want: false},
		{name: "same uri different name", record: record("spotify:track:1", "Another", "a"), want: false},
		{name: "distinct", record: record("spotify:track:3", "Afterglow", "b"), want: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := state.Insert(tt.record); got != tt.want {
				t.Errorf("Insert() = %v, want %v", got, tt.want)
			}
		})
	}

	if state.Len() != 2 {
		t.Errorf("expected 2 records, got %d", state.Len())
	}
}

func TestTrackStateEvict(t *testing.T) {
	state := NewTrackState([]TrackRecord{
		record("spotify:track:1", "One", "keep"),
		record("spotify:track:2", "Two", "drop"),
		record("spotify:track:3", "Three", "keep"),
	})

	evicted := state.Evict(func(r TrackRecord) bool { return r.ArtistID == "keep" })

	if len(evicted) != 1 || evicted[0].URI != "spotify:track:2" {
		t.Fatalf("unexpected evicted records %+v", evicted)
	}
	if got := state.URIs(); !slices.Equal(got, []string{"spotify:track:1", "spotify:track:3"}) {
		t.Errorf("URIs() after evict = %v", got)
	}

	if !state.Insert(record("spotify:track:2", "Two", "keep")) {
		t.Error("evicted name and uri should be free for reuse")
	}
}

func TestTrackStateSortStable(t *testing.T) {
	state := NewTrackState([]TrackRecord{
		record("spotify:track:1", "b-first", "B"),
		record("spotify:track:2", "a", "A"),
		record("spotify:track:3", "b-second", "B"),
	})

	state.SortStable(func(a, b TrackRecord) int {
		return cmp.Compare(strings.ToLower(a.ArtistName), strings.ToLower(b.ArtistName))
	})

	want := []string{"spotify:track:2", "spotify:track:1", "spotify:track:3"}
	if got := state.URIs(); !slices.Equal(got, want) {
		t.Errorf("URIs() after sort = %v, want %v", got, want)
	}
}

func TestTrackStateRecordsCopy(t *testing.T) {
	state := NewTrackState([]TrackRecord{record("spotify:track:1", "One", "a")})
	records := state.Records()
	records[0].Name = "changed"

	if state.Records()[0].Name != "One" {
		t.Error("Records() should return a copy")
	}
}
