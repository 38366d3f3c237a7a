// Package genres flags tracked artists whose catalog genres look out of place for the playlist.
//
// Classification is independent of the update pass: the engine never consults it.
package genres

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
)

// DefaultKeywords are the genre substrings treated as on-topic.
var DefaultKeywords = []string{"house", "tech", "deep", "afro", "minimal", "electronic", "dance", "techno", "disco", "club", "edm"}

// ArtistGenres is an artist with the genres the catalog reports for it.
type ArtistGenres struct {
	Artist models.Artist `json:"artist"`
	Genres []string      `json:"genres"`
}

// Verdict is the outcome of classifying one artist.
type Verdict struct {
	Suspicious bool
	Reason     string
}

// Classifier decides whether an artist fits the playlist.
type Classifier interface {
	Classify(artist ArtistGenres) Verdict
}

// ArtistLookup fetches catalog records for up to [services.MaxArtistsBatch] IDs.
type ArtistLookup interface {
	SeveralArtists(ctx context.Context, artistIDs []string) ([]services.SpotifyArtist, error)
}

// KeywordClassifier marks an artist suspicious when none of its genres contains a keyword.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a [KeywordClassifier]. An empty list selects [DefaultKeywords].
func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &KeywordClassifier{keywords: normalized}
}

func (c *KeywordClassifier) Classify(artist ArtistGenres) Verdict {
	if len(artist.Genres) == 0 {
		return Verdict{Suspicious: true, Reason: "no genres listed"}
	}
	for _, g := range artist.Genres {
		g = strings.ToLower(g)
		if slices.ContainsFunc(c.keywords, func(k string) bool { return strings.Contains(g, k) }) {
			return Verdict{}
		}
	}
	return Verdict{Suspicious: true, Reason: "genres: " + strings.Join(artist.Genres, ", ")}
}

// Finding is a suspicious artist and the classifier's reason.
type Finding struct {
	ArtistGenres
	Reason string `json:"reason"`
}

// Report is the result of [Check].
type Report struct {
	Checked  int             `json:"checked"`
	Findings []Finding       `json:"findings"`
	Skipped  []models.Artist `json:"skipped"` // artists whose batch failed to load
}

// Check classifies artists in batches of [services.MaxArtistsBatch].
//
// A failed batch is logged and its artists are listed in Report.Skipped. Artists the catalog
// does not return are skipped the same way. Check only returns an error when ctx is done.
func Check(ctx context.Context, lookup ArtistLookup, artists []models.Artist, classifier Classifier, logger *log.Logger) (*Report, error) {
	report := &Report{}
	for batch := range slices.Chunk(artists, services.MaxArtistsBatch) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ids := make([]string, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}

		found, err := lookup.SeveralArtists(ctx, ids)
		if err != nil {
			if logger != nil {
				logger.Warn("failed to fetch artist batch", "size", len(batch), "error", err)
			}
			report.Skipped = append(report.Skipped, batch...)
			continue
		}

		genresByID := make(map[string][]string, len(found))
		for _, a := range found {
			genresByID[a.ID] = a.Genres
		}

		for _, a := range batch {
			genres, ok := genresByID[a.ID]
			if !ok {
				report.Skipped = append(report.Skipped, a)
				continue
			}
			entry := ArtistGenres{Artist: a, Genres: genres}
			report.Checked++
			if v := classifier.Classify(entry); v.Suspicious {
				report.Findings = append(report.Findings, Finding{ArtistGenres: entry, Reason: v.Reason})
			}
		}
	}
	return report, nil
}
