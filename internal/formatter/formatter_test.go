package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
	th "github.com/desertthunder/freshlist/internal/testing"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleExport() *TrackExport {
	return &TrackExport{
		PlaylistID: "pl123",
		Name:       "NEW RELEASE HOUSE",
		Now:        now,
		Tracks: []models.TrackRecord{
			{
				URI: "spotify:track:1", Name: "Night Drive", ArtistID: "a1", ArtistName: "Artist One",
				AlbumName: "Drive EP", TrackNumber: 1, AddedAt: now.Add(-25 * time.Hour),
			},
			{
				URI: "spotify:track:2", Name: "Pipe | Dream", ArtistID: "a2", ArtistName: "Artist Two",
				AlbumName: "", TrackNumber: 3, AddedAt: now.Add(-7*24*time.Hour + 2*time.Hour),
			},
		},
	}
}

func TestFormatExpiry(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "expired"},
		{-time.Hour, "expired"},
		{2 * time.Hour, "2h"},
		{5*24*time.Hour + 23*time.Hour, "5d 23h"},
		{7 * 24 * time.Hour, "7d 0h"},
	}
	for _, tt := range tests {
		if got := FormatExpiry(tt.d); got != tt.want {
			t.Errorf("FormatExpiry(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "URI,Title,Artist,Album,Track,Added At,Expires In" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(lines[1], "spotify:track:1,Night Drive,Artist One,Drive EP,1,2024-06-14T11:00:00Z,5d 23h") {
			t.Errorf("unexpected row: %s", lines[1])
		}
		if !strings.HasSuffix(lines[2], ",2h") {
			t.Errorf("unexpected expiry: %s", lines[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# NEW RELEASE HOUSE") {
			t.Error("Markdown missing title")
		}
		if !strings.Contains(output, "https://open.spotify.com/playlist/pl123") {
			t.Error("Markdown missing playlist link")
		}
		if !strings.Contains(output, `| 2 | Artist Two | Pipe \| Dream |  | 2h |`) {
			t.Errorf("Markdown pipe not escaped:\n%s", output)
		}
	})

	t.Run("ExportToMarkdown empty", func(t *testing.T) {
		data, err := ExportToMarkdown(&TrackExport{Now: now})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "|---") {
			t.Error("empty export should not render a table")
		}
		if !strings.Contains(string(data), "# freshlist") {
			t.Error("expected default title")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") {
			t.Error("Text missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Night Drive (Drive EP) [5d 23h]") {
			t.Errorf("unexpected text:\n%s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Pipe | Dream [2h]") {
			t.Errorf("album part should be omitted when empty:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded TrackExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.PlaylistID != "pl123" || len(decoded.Tracks) != 2 {
			t.Errorf("unexpected JSON: %s", data)
		}

		empty, err := ExportToJSON(&TrackExport{})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(empty), `"tracks": []`) {
			t.Errorf("empty tracks should encode as [], got %s", empty)
		}
	})
}

func TestFormat(t *testing.T) {
	for _, format := range []string{"text", "txt", "", "json", "CSV", "markdown", "md"} {
		t.Run(format, func(t *testing.T) {
			if _, err := Format(sampleExport(), format); err != nil {
				t.Errorf("Format(%q) failed: %v", format, err)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		if _, err := Format(sampleExport(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")

	if err := WriteExport(sampleExport(), FormatCSV, path); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}

	th.AssertFileExists(t, path)
	if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "URI,") {
		t.Errorf("unexpected file content: %s", content)
	}

	if err := WriteExport(sampleExport(), FormatCSV, filepath.Join(t.TempDir(), "missing", "x.csv")); err == nil {
		t.Error("expected error writing to a missing directory")
	}
}

func TestNewTrackExport(t *testing.T) {
	state := models.NewState()
	state.PlaylistID = "pl"
	state.Tracks = models.NewTrackState([]models.TrackRecord{{URI: "u", Name: "n", AddedAt: now}})

	export := NewTrackExport(state, "Fresh", now)
	if export.PlaylistID != "pl" || export.Name != "Fresh" || len(export.Tracks) != 1 {
		t.Errorf("unexpected export %+v", export)
	}
}
