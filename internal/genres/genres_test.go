package genres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
	tu "github.com/desertthunder/freshlist/internal/testing"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(nil)

	tests := []struct {
		name       string
		genres     []string
		suspicious bool
	}{
		{name: "deep house", genres: []string{"deep house"}},
		{name: "case insensitive", genres: []string{"Afro House"}},
		{name: "substring match", genres: []string{"melodic techno"}},
		{name: "one match is enough", genres: []string{"pop", "nu disco"}},
		{name: "no match", genres: []string{"country", "folk"}, suspicious: true},
		{name: "no genres", genres: nil, suspicious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(ArtistGenres{Artist: models.Artist{ID: "x", Name: "X"}, Genres: tt.genres})
			assert.Equal(t, tt.suspicious, v.Suspicious)
			if tt.suspicious {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}

	t.Run("custom keywords", func(t *testing.T) {
		c := NewKeywordClassifier([]string{" Jazz ", ""})
		assert.False(t, c.Classify(ArtistGenres{Genres: []string{"acid jazz"}}).Suspicious)
		assert.True(t, c.Classify(ArtistGenres{Genres: []string{"deep house"}}).Suspicious)
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	newMock := func(n int) (*tu.MockService, []models.Artist) {
		mock := tu.NewMockService()
		var artists []models.Artist
		for i := range n {
			id := fmt.Sprintf("a%03d", i)
			genres := []string{"deep house"}
			if i%10 == 0 {
				genres = []string{"country"}
			}
			mock.Artists[id] = services.SpotifyArtist{ID: id, Name: id, Genres: genres}
			artists = append(artists, models.Artist{ID: id, Name: id})
		}
		return mock, artists
	}

	t.Run("batches of fifty", func(t *testing.T) {
		mock, artists := newMock(120)

		report, err := Check(ctx, mock, artists, NewKeywordClassifier(nil), nil)
		require.NoError(t, err)

		lookups := mock.ArtistLookups()
		require.Len(t, lookups, 3)
		assert.Len(t, lookups[0], 50)
		assert.Len(t, lookups[1], 50)
		assert.Len(t, lookups[2], 20)

		assert.Equal(t, 120, report.Checked)
		assert.Len(t, report.Findings, 12)
		assert.Empty(t, report.Skipped)
	})

	t.Run("failed batch is skipped", func(t *testing.T) {
		mock, artists := newMock(3)
		mock.ArtistsErr = shared.ErrServiceUnavailable

		report, err := Check(ctx, mock, artists, NewKeywordClassifier(nil), shared.NewLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, 0, report.Checked)
		assert.Len(t, report.Skipped, 3)
	})

	t.Run("unknown artist is skipped", func(t *testing.T) {
		mock, artists := newMock(2)
		artists = append(artists, models.Artist{ID: "gone", Name: "Gone"})

		report, err := Check(ctx, mock, artists, NewKeywordClassifier(nil), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Checked)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, "gone", report.Skipped[0].ID)
	})

	t.Run("cancelled", func(t *testing.T) {
		mock, artists := newMock(2)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Check(cctx, mock, artists, NewKeywordClassifier(nil), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
