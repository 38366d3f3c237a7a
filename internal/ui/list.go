package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/freshlist/internal/formatter"
	"github.com/desertthunder/freshlist/internal/models"
)

var (
	_ list.Item = trackItem{}
)

// trackItem wraps [models.TrackRecord] to implement [list.Item].
type trackItem struct {
	track models.TrackRecord
	now   time.Time
}

func (i trackItem) FilterValue() string { return i.track.Name + " " + i.track.ArtistName }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.ArtistName
	if i.track.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.AlbumName)
	}
	left := i.track.AddedAt.Add(models.RetentionWindow).Sub(i.now)
	return fmt.Sprintf("%s • expires in %s", desc, formatter.FormatExpiry(left))
}

func trackItems(records []models.TrackRecord, now time.Time) []list.Item {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = trackItem{track: r, now: now}
	}
	return items
}
