// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/desertthunder/freshlist/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// MaxPlaylistBatch is the most URIs a single replace or add call accepts.
const MaxPlaylistBatch = 100

// MaxArtistsBatch is the most IDs a single several-artists lookup accepts.
const MaxArtistsBatch = 50

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a Spotify artist. Simplified artist objects omit Genres.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyAlbum represents a simplified album as returned by the artist albums endpoint.
type SpotifyAlbum struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	AlbumType            string          `json:"album_type"`
	AlbumGroup           string          `json:"album_group"`
	Artists              []SpotifyArtist `json:"artists"`
	ReleaseDate          string          `json:"release_date"`
	ReleaseDatePrecision string          `json:"release_date_precision"` // year, month or day
	TotalTracks          int             `json:"total_tracks"`
	URI                  string          `json:"uri"`
}

// SpotifyAlbumPage is one page of an artist's albums.
type SpotifyAlbumPage struct {
	Items  []SpotifyAlbum `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SpotifySimpleTrack represents a track as listed on an album.
type SpotifySimpleTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	TrackNumber int             `json:"track_number"`
	DiscNumber  int             `json:"disc_number"`
	DurationMS  int             `json:"duration_ms"`
	URI         string          `json:"uri"`
}

type simpleTrackPage struct {
	Items []SpotifySimpleTrack `json:"items"`
	Next  *string              `json:"next"`
}

// SpotifyTrack represents a full Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	TrackNumber int             `json:"track_number"`
	DurationMS  int             `json:"duration_ms"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// PrimaryArtist returns the first credited artist, if any.
func (t SpotifyTrack) PrimaryArtist() (SpotifyArtist, bool) {
	if len(t.Artists) == 0 {
		return SpotifyArtist{}, false
	}
	return t.Artists[0], true
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	SnapshotID  string `json:"snapshot_id"`
	URI         string `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type playlistTrackPage struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithRateLimit throttles requests to rps per second across all goroutines. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithRequestTimeout bounds every HTTP request, including reading the response body.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *SpotifyService) { s.timeout = d }
}

// WithMaxRetries retries 429 and 5xx responses up to n times with exponential backoff.
func WithMaxRetries(n int) Option {
	return func(s *SpotifyService) { s.maxRetries = max(0, n) }
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// SpotifyService implements the [Service] interface for Spotify API interactions.
// Uses [oauth2] for authentication and is safe for concurrent use once authenticated.
type SpotifyService struct {
	config      *oauth2.Config
	httpClient  *http.Client
	tokenSource *refreshableTokenSource
	baseURL     string
	limiter     *rate.Limiter
	timeout     time.Duration
	maxRetries  int

	mu             sync.Mutex
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:  config,
		baseURL: spotifyBaseURL,
		limiter: rate.NewLimiter(rate.Inf, 0),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate accepts an "access_token" and/or "refresh_token", or exchanges an "auth_code".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	access, refresh := credentials["access_token"], credentials["refresh_token"]
	if access != "" || refresh != "" {
		token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
		if access == "" {
			// Force a refresh on first use.
			token.Expiry = time.Unix(1, 0)
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token, refresh_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// OAuthenticate installs token on the HTTP client. The token is refreshed automatically when it expires.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return shared.ErrNotAuthenticated
	}

	base := s.config.TokenSource(context.WithoutCancel(ctx), token)

	s.mu.Lock()
	source := &refreshableTokenSource{
		source:   oauth2.ReuseTokenSource(token, base),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.mu.Unlock()

	client := oauth2.NewClient(context.WithoutCancel(ctx), source)
	client.Timeout = s.timeout

	s.tokenSource = source
	s.httpClient = client
	return nil
}

// SetTokenRefreshCallback registers fn to receive every newly issued access token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	s.onTokenRefresh = fn
	s.mu.Unlock()

	if s.tokenSource != nil {
		s.tokenSource.setCallback(fn)
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration used for the code exchange.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// refreshableTokenSource reports each new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	callback := r.callback
	r.mu.Unlock()

	if changed && callback != nil {
		callback(token)
	}
	return token, nil
}

func (r *refreshableTokenSource) setCallback(fn func(*oauth2.Token)) {
	r.mu.Lock()
	r.callback = fn
	r.mu.Unlock()
}

// doRequest performs an authenticated request. endpoint is either a path under the API root or an absolute "next" URL.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		apiURL = s.baseURL + endpoint
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	if s.maxRetries == 0 {
		return s.send(ctx, method, apiURL, payload, result)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.send(ctx, method, apiURL, payload, result)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
	)
	return err
}

func retryable(err error) bool {
	return errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrServiceUnavailable)
}

func (s *SpotifyService) send(ctx context.Context, method, apiURL string, payload []byte, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, apiURL, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: token refresh failed: %w", shared.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, apiURL, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, apiURL, err)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// statusError maps a non-2xx response to a sentinel error carrying Spotify's message.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr spotifyError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case code == http.StatusTooManyRequests:
		if after := resp.Header.Get("Retry-After"); after != "" {
			return fmt.Errorf("%w: retry after %ss", shared.ErrRateLimited, after)
		}
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, msg)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, code, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, code, msg)
	}
}

// SearchArtist returns the top artist result for query.
func (s *SpotifyService) SearchArtist(ctx context.Context, query string) (*SpotifyArtist, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty artist query", shared.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", "1")

	var response struct {
		Artists struct {
			Items []SpotifyArtist `json:"items"`
		} `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	if len(response.Artists.Items) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrArtistNotFound, query)
	}
	return &response.Artists.Items[0], nil
}

// ArtistAlbums returns the first page of an artist's albums and singles.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string, limit int) (*SpotifyAlbumPage, error) {
	limit = min(max(limit, 1), 50)

	params := url.Values{}
	params.Set("include_groups", "album,single")
	params.Set("limit", strconv.Itoa(limit))

	var page SpotifyAlbumPage
	endpoint := fmt.Sprintf("/artists/%s/albums?%s", url.PathEscape(artistID), params.Encode())
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AlbumTracks returns every track on an album.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string) ([]SpotifySimpleTrack, error) {
	var tracks []SpotifySimpleTrack

	next := fmt.Sprintf("/albums/%s/tracks?limit=50", url.PathEscape(albumID))
	for next != "" {
		var page simpleTrackPage
		if err := s.doRequest(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		tracks = append(tracks, page.Items...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return tracks, nil
}

// ArtistTopTracks returns an artist's top tracks in market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, error) {
	if market == "" {
		market = "US"
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=%s", url.PathEscape(artistID), url.QueryEscape(market))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// SeveralArtists retrieves multiple artists by their IDs (up to 50).
func (s *SpotifyService) SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error) {
	if len(artistIDs) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrInvalidArgument)
	}
	if len(artistIDs) > MaxArtistsBatch {
		return nil, fmt.Errorf("%w: maximum %d artist IDs allowed", shared.ErrInvalidArgument, MaxArtistsBatch)
	}

	var response struct {
		Artists []*SpotifyArtist `json:"artists"`
	}
	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(artistIDs, ","))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]SpotifyArtist, 0, len(response.Artists))
	for _, a := range response.Artists {
		// Unknown IDs come back as null.
		if a != nil {
			artists = append(artists, *a)
		}
	}
	return artists, nil
}

type playlistItemsBody struct {
	URIs []string `json:"uris"`
}

// ReplacePlaylistItems overwrites the playlist with exactly uris. An empty slice clears it.
func (s *SpotifyService) ReplacePlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) > MaxPlaylistBatch {
		return fmt.Errorf("%w: at most %d URIs per replace, got %d", shared.ErrInvalidArgument, MaxPlaylistBatch, len(uris))
	}
	if uris == nil {
		uris = []string{}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, playlistItemsBody{URIs: uris}, nil)
}

// AddPlaylistItems appends uris to the end of the playlist.
func (s *SpotifyService) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxPlaylistBatch {
		return fmt.Errorf("%w: at most %d URIs per add, got %d", shared.ErrInvalidArgument, MaxPlaylistBatch, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, playlistItemsBody{URIs: uris}, nil)
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID string, details PlaylistDetails) (*SpotifyPlaylist, error) {
	if details.Name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, details, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ChangePlaylistDetails updates a playlist's name, description and visibility.
func (s *SpotifyService) ChangePlaylistDetails(ctx context.Context, playlistID string, details PlaylistDetails) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	err := s.doRequest(ctx, http.MethodPut, endpoint, details, nil)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return err
}

// PlaylistItems lists every item of a playlist.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlist string) ([]SpotifyPlaylistTrack, error) {
	playlistID, err := ParsePlaylistID(playlist)
	if err != nil {
		return nil, err
	}

	var items []SpotifyPlaylistTrack
	next := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))
	for next != "" {
		var page playlistTrackPage
		if err := s.doRequest(ctx, http.MethodGet, next, nil, &page); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
			}
			return nil, err
		}
		items = append(items, page.Items...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return items, nil
}

// ParsePlaylistID extracts a playlist ID from a raw ID, a spotify:playlist: URI or an open.spotify.com URL.
func ParsePlaylistID(s string) (string, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty playlist reference", shared.ErrInvalidArgument)
	case strings.HasPrefix(s, "spotify:"):
		parts := strings.Split(s, ":")
		if len(parts) >= 3 && parts[len(parts)-2] == "playlist" && parts[len(parts)-1] != "" {
			return parts[len(parts)-1], nil
		}
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, seg := range segments {
			if seg == "playlist" && i+1 < len(segments) && segments[i+1] != "" {
				return segments[i+1], nil
			}
		}
	case isAlphanumeric(s):
		return s, nil
	}

	return "", fmt.Errorf("%w: not a playlist reference: %q", shared.ErrInvalidArgument, s)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
