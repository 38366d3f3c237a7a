// package formatter renders the retained playlist tracks as CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists every value accepted by [Format].
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// TrackExport is a snapshot of the playlist for display. Now anchors the expiry countdown.
type TrackExport struct {
	PlaylistID string               `json:"playlist_id"`
	Name       string               `json:"name"`
	Tracks     []models.TrackRecord `json:"tracks"`
	Now        time.Time            `json:"-"`
}

// NewTrackExport snapshots state.
func NewTrackExport(state *models.State, name string, now time.Time) *TrackExport {
	return &TrackExport{
		PlaylistID: state.PlaylistID,
		Name:       name,
		Tracks:     state.Tracks.Records(),
		Now:        now,
	}
}

func (e *TrackExport) expiresIn(t models.TrackRecord) time.Duration {
	return max(t.AddedAt.Add(models.RetentionWindow).Sub(e.Now), 0)
}

// FormatExpiry renders a remaining retention time in days and hours, e.g. "6d 23h".
func FormatExpiry(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	if days == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}

// ExportToCSV converts a TrackExport to CSV format with columns: URI, Title, Artist, Album, Track, Added At, Expires In
func ExportToCSV(export *TrackExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"URI", "Title", "Artist", "Album", "Track", "Added At", "Expires In"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.URI,
			track.Name,
			track.ArtistName,
			track.AlbumName,
			strconv.Itoa(track.TrackNumber),
			track.AddedAt.UTC().Format(time.RFC3339),
			FormatExpiry(export.expiresIn(track)),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a TrackExport to a Markdown table
func ExportToMarkdown(export *TrackExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.title())
	if export.PlaylistID != "" {
		fmt.Fprintf(&buf, "**Playlist**: https://open.spotify.com/playlist/%s\n", export.PlaylistID)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	if len(export.Tracks) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Artist | Title | Album | Expires In |\n")
	buf.WriteString("|---|--------|-------|-------|------------|\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			i+1,
			escapeCell(track.ArtistName),
			escapeCell(track.Name),
			escapeCell(track.AlbumName),
			FormatExpiry(export.expiresIn(track)),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a TrackExport to plain text format
func ExportToText(export *TrackExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.title())
	if export.PlaylistID != "" {
		fmt.Fprintf(&buf, "ID: %s\n", export.PlaylistID)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistName, track.Name, albumPart, FormatExpiry(export.expiresIn(track)))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON.
func ExportToJSON(export *TrackExport) ([]byte, error) {
	if export.Tracks == nil {
		export.Tracks = []models.TrackRecord{}
	}
	return shared.MarshalJSON(export, true)
}

// Format renders export in the named format.
func Format(export *TrackExport, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "txt", "":
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "md":
		return ExportToMarkdown(export)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// WriteExport renders export and writes it to path.
func WriteExport(export *TrackExport, format, path string) error {
	data, err := Format(export, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (e *TrackExport) title() string {
	if e.Name == "" {
		return "freshlist"
	}
	return e.Name
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
