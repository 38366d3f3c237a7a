package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// newTestService returns an authenticated service whose requests go through httpmock.
func newTestService(t *testing.T, opts ...Option) *SpotifyService {
	t.Helper()
	setupHTTPMock(t)

	srv, err := NewSpotifyService(testCredentials, opts...)
	require.NoError(t, err)
	require.NoError(t, srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}))
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			}

			srv, err := NewSpotifyService(credentials)
			require.NoError(t, err)
			assert.Equal(t, "Spotify", srv.Name())
			assert.Equal(t, "http://localhost:9999/callback", srv.GetOAuthConfig().RedirectURL)
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			assert.ErrorIs(t, err, shared.ErrMissingCredentials)
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			assert.ErrorIs(t, err, shared.ErrMissingCredentials)
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			require.NoError(t, err)
			assert.Equal(t, "http://127.0.0.1:3000/callback", srv.config.RedirectURL)
		})

		t.Run("Requests playlist modify scopes", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			require.NoError(t, err)
			assert.Contains(t, srv.config.Scopes, "playlist-modify-public")
			assert.Contains(t, srv.config.Scopes, "playlist-modify-private")
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		require.NoError(t, err)

		authURL := srv.GetAuthURL("test_state")
		assert.Contains(t, authURL, "accounts.spotify.com")
		assert.Contains(t, authURL, "test_client_id")
		assert.Contains(t, authURL, "test_state")
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		require.NoError(t, err)

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			assert.ErrorIs(t, err, shared.ErrMissingCredentials)
		})

		t.Run("Not authenticated request", func(t *testing.T) {
			_, err := srv.CurrentUser(context.Background())
			assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
		})

		t.Run("WithAccessToken", func(t *testing.T) {
			require.NoError(t, srv.Authenticate(context.Background(), map[string]string{"access_token": "abc"}))
			require.NotNil(t, srv.httpClient)
		})

		t.Run("Nil token", func(t *testing.T) {
			assert.ErrorIs(t, srv.OAuthenticate(context.Background(), nil), shared.ErrNotAuthenticated)
		})
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback on first token fetch", func(t *testing.T) {
		var captured *oauth2.Token
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			callback: func(token *oauth2.Token) { captured = token },
		}

		token, err := source.Token()
		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Equal(t, "test_token", captured.AccessToken)
		assert.Equal(t, "test_token", token.AccessToken)
	})

	t.Run("calls callback only when token changes", func(t *testing.T) {
		calls := 0
		mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
		source := &refreshableTokenSource{
			source:   mock,
			callback: func(*oauth2.Token) { calls++ },
			last:     "token1",
		}

		_, _ = source.Token()
		assert.Equal(t, 0, calls, "unchanged token should not trigger callback")

		mock.token = &oauth2.Token{AccessToken: "token2"}
		_, _ = source.Token()
		_, _ = source.Token()
		assert.Equal(t, 1, calls)
	})

	t.Run("propagates errors", func(t *testing.T) {
		source := &refreshableTokenSource{source: &mockTokenSource{err: errors.New("boom")}}
		_, err := source.Token()
		assert.Error(t, err)
	})

	t.Run("SetTokenRefreshCallback reaches installed source", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		require.NoError(t, err)
		require.NoError(t, srv.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "a"}))

		srv.SetTokenRefreshCallback(func(*oauth2.Token) {})
		srv.tokenSource.mu.Lock()
		defer srv.tokenSource.mu.Unlock()
		assert.NotNil(t, srv.tokenSource.callback)
	})
}

func TestSearchArtist(t *testing.T) {
	srv := newTestService(t)

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/search",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			assert.Equal(t, "artist", q.Get("type"))
			assert.Equal(t, "1", q.Get("limit"))
			assert.Equal(t, "Bearer test_access_token", req.Header.Get("Authorization"))

			if q.Get("q") == "nobody" {
				return httpmock.NewStringResponse(200, `{"artists":{"items":[]}}`), nil
			}
			return httpmock.NewStringResponse(200, `{"artists":{"items":[{"id":"a1","name":"Kerri Chandler","genres":["deep house"]}]}}`), nil
		})

	artist, err := srv.SearchArtist(context.Background(), "kerri chandler")
	require.NoError(t, err)
	assert.Equal(t, "a1", artist.ID)
	assert.Equal(t, "Kerri Chandler", artist.Name)

	_, err = srv.SearchArtist(context.Background(), "nobody")
	assert.ErrorIs(t, err, shared.ErrArtistNotFound)

	_, err = srv.SearchArtist(context.Background(), "  ")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestArtistAlbums(t *testing.T) {
	srv := newTestService(t)

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/artists/a1/albums",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "album,single", req.URL.Query().Get("include_groups"))
			assert.Equal(t, "20", req.URL.Query().Get("limit"))
			return httpmock.NewStringResponse(200, `{
				"items": [
					{"id":"al1","name":"Fresh","release_date":"2025-06-10","release_date_precision":"day","album_type":"single","album_group":"single"},
					{"id":"al2","name":"Old","release_date":"2019-03","release_date_precision":"month","album_type":"album","album_group":"album"}
				],
				"total": 2, "limit": 20, "offset": 0, "next": null
			}`), nil
		})

	page, err := srv.ArtistAlbums(context.Background(), "a1", 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "day", page.Items[0].ReleaseDatePrecision)
	assert.Equal(t, "month", page.Items[1].ReleaseDatePrecision)
	assert.Nil(t, page.Next)
}

func TestAlbumTracksFollowsPages(t *testing.T) {
	srv := newTestService(t)

	var calls atomic.Int32
	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/albums/al1/tracks",
		func(req *http.Request) (*http.Response, error) {
			calls.Add(1)
			if req.URL.Query().Get("offset") == "50" {
				return httpmock.NewStringResponse(200, `{"items":[{"uri":"spotify:track:3","name":"Three","track_number":3}],"next":null}`), nil
			}
			next := spotifyBaseURL + "/albums/al1/tracks?offset=50&limit=50"
			return httpmock.NewStringResponse(200, fmt.Sprintf(`{"items":[
				{"uri":"spotify:track:1","name":"One","track_number":1},
				{"uri":"spotify:track:2","name":"Two","track_number":2}
			],"next":%q}`, next)), nil
		})

	tracks, err := srv.AlbumTracks(context.Background(), "al1")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 3, tracks[2].TrackNumber)
}

func TestArtistTopTracks(t *testing.T) {
	srv := newTestService(t)

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/artists/a1/top-tracks",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "GB", req.URL.Query().Get("market"))
			return httpmock.NewStringResponse(200, `{"tracks":[{"uri":"spotify:track:9","name":"Hit","album":{"name":"Best"},"artists":[{"id":"a1","name":"A"}]}]}`), nil
		})

	tracks, err := srv.ArtistTopTracks(context.Background(), "a1", "GB")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Best", tracks[0].Album.Name)
	primary, ok := tracks[0].PrimaryArtist()
	assert.True(t, ok)
	assert.Equal(t, "a1", primary.ID)
}

func TestSeveralArtists(t *testing.T) {
	srv := newTestService(t)

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/artists",
		httpmock.NewStringResponder(200, `{"artists":[{"id":"a1","name":"A","genres":["house"]},null]}`))

	artists, err := srv.SeveralArtists(context.Background(), []string{"a1", "missing"})
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, []string{"house"}, artists[0].Genres)

	_, err = srv.SeveralArtists(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = srv.SeveralArtists(context.Background(), make([]string, MaxArtistsBatch+1))
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPlaylistWrites(t *testing.T) {
	srv := newTestService(t)

	var bodies []playlistItemsBody
	var methods []string
	httpmock.RegisterResponder(http.MethodPut, spotifyBaseURL+"/playlists/pl1/tracks",
		func(req *http.Request) (*http.Response, error) {
			var body playlistItemsBody
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			bodies = append(bodies, body)
			methods = append(methods, req.Method)
			return httpmock.NewStringResponse(200, `{"snapshot_id":"s1"}`), nil
		})
	httpmock.RegisterResponder(http.MethodPost, spotifyBaseURL+"/playlists/pl1/tracks",
		func(req *http.Request) (*http.Response, error) {
			var body playlistItemsBody
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			bodies = append(bodies, body)
			methods = append(methods, req.Method)
			return httpmock.NewStringResponse(201, `{"snapshot_id":"s2"}`), nil
		})

	ctx := context.Background()
	require.NoError(t, srv.ReplacePlaylistItems(ctx, "pl1", nil))
	require.NoError(t, srv.ReplacePlaylistItems(ctx, "pl1", []string{"spotify:track:1"}))
	require.NoError(t, srv.AddPlaylistItems(ctx, "pl1", []string{"spotify:track:2"}))
	require.NoError(t, srv.AddPlaylistItems(ctx, "pl1", nil), "empty add is a no-op")

	assert.Equal(t, []string{http.MethodPut, http.MethodPut, http.MethodPost}, methods)
	require.Len(t, bodies, 3)
	assert.NotNil(t, bodies[0].URIs, "empty replace must send [] rather than null")
	assert.Empty(t, bodies[0].URIs)
	assert.Equal(t, []string{"spotify:track:2"}, bodies[2].URIs)

	tooMany := make([]string, MaxPlaylistBatch+1)
	assert.ErrorIs(t, srv.ReplacePlaylistItems(ctx, "pl1", tooMany), shared.ErrInvalidArgument)
	assert.ErrorIs(t, srv.AddPlaylistItems(ctx, "pl1", tooMany), shared.ErrInvalidArgument)
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestPlaylistManagement(t *testing.T) {
	srv := newTestService(t)
	ctx := context.Background()

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
		httpmock.NewStringResponder(200, `{"id":"user1","display_name":"DJ"}`))
	httpmock.RegisterResponder(http.MethodPost, spotifyBaseURL+"/users/user1/playlists",
		func(req *http.Request) (*http.Response, error) {
			var details PlaylistDetails
			require.NoError(t, json.NewDecoder(req.Body).Decode(&details))
			assert.Equal(t, "Fresh", details.Name)
			return httpmock.NewStringResponse(201, `{"id":"pl9","name":"Fresh"}`), nil
		})
	httpmock.RegisterResponder(http.MethodPut, spotifyBaseURL+"/playlists/pl9",
		httpmock.NewStringResponder(200, ""))
	httpmock.RegisterResponder(http.MethodPut, spotifyBaseURL+"/playlists/gone",
		httpmock.NewStringResponder(404, `{"error":{"status":404,"message":"Not found."}}`))

	user, err := srv.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user1", user.ID)

	playlist, err := srv.CreatePlaylist(ctx, user.ID, PlaylistDetails{Name: "Fresh", Public: true})
	require.NoError(t, err)
	assert.Equal(t, "pl9", playlist.ID)

	_, err = srv.CreatePlaylist(ctx, user.ID, PlaylistDetails{})
	assert.ErrorIs(t, err, shared.ErrMissingArgument)

	require.NoError(t, srv.ChangePlaylistDetails(ctx, "pl9", PlaylistDetails{Name: "Renamed"}))

	err = srv.ChangePlaylistDetails(ctx, "gone", PlaylistDetails{Name: "x"})
	assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
}

func TestPlaylistItems(t *testing.T) {
	srv := newTestService(t)

	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/playlists/37i9dQZF1DXcBWIGoYBM5M/tracks",
		func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("offset") == "100" {
				return httpmock.NewStringResponse(200, `{"items":[{"track":null}],"next":null}`), nil
			}
			next := spotifyBaseURL + "/playlists/37i9dQZF1DXcBWIGoYBM5M/tracks?offset=100&limit=100"
			return httpmock.NewStringResponse(200, fmt.Sprintf(`{"items":[
				{"added_at":"2025-01-01T00:00:00Z","track":{"uri":"spotify:track:1","name":"One","artists":[{"id":"a1","name":"A"}]}}
			],"next":%q}`, next)), nil
		})

	items, err := srv.PlaylistItems(context.Background(), "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Track)
	assert.Equal(t, "spotify:track:1", items[0].Track.URI)
	assert.Nil(t, items[1].Track)
}

func TestStatusErrors(t *testing.T) {
	tc := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
		{name: "forbidden", status: http.StatusForbidden, want: shared.ErrAuthFailed},
		{name: "not found", status: http.StatusNotFound, want: shared.ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: shared.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, want: shared.ErrServiceUnavailable},
		{name: "bad request", status: http.StatusBadRequest, want: shared.ErrAPIRequest},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestService(t)
			httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
				httpmock.NewStringResponder(tt.status, `{"error":{"status":0,"message":"nope"}}`))

			_, err := srv.CurrentUser(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestRetries(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		srv := newTestService(t)
		httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
			httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

		_, err := srv.CurrentUser(context.Background())
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})

	t.Run("retries transient errors when enabled", func(t *testing.T) {
		srv := newTestService(t, WithMaxRetries(2))

		var calls atomic.Int32
		httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
			func(*http.Request) (*http.Response, error) {
				if calls.Add(1) < 3 {
					return httpmock.NewStringResponse(http.StatusTooManyRequests, ""), nil
				}
				return httpmock.NewStringResponse(200, `{"id":"user1"}`), nil
			})

		user, err := srv.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user1", user.ID)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		srv := newTestService(t, WithMaxRetries(3))
		httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
			httpmock.NewStringResponder(http.StatusNotFound, ""))

		_, err := srv.CurrentUser(context.Background())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
}

func TestWithRateLimitCancelled(t *testing.T) {
	srv := newTestService(t, WithRateLimit(0.001))
	httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/me",
		httpmock.NewStringResponder(200, `{"id":"user1"}`))

	ctx := context.Background()
	_, err := srv.CurrentUser(ctx)
	require.NoError(t, err, "first request uses the initial burst")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = srv.CurrentUser(cancelled)
	assert.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestParsePlaylistID(t *testing.T) {
	tc := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=1234", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "https://open.spotify.com/user/someone/playlist/abc123", want: "abc123"},
		{in: "  abc  ", want: "abc"},
		{in: "", wantErr: true},
		{in: "spotify:track:123", wantErr: true},
		{in: "https://open.spotify.com/album/123", wantErr: true},
		{in: "not a playlist!", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlaylistID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceInterfaces(t *testing.T) {
	srv, err := NewSpotifyService(testCredentials)
	require.NoError(t, err)

	var _ Service = srv
	var _ OAuthService = srv
	assert.True(t, strings.HasPrefix(srv.baseURL, "https://"))
}
