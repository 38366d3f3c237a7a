// package services defines the interfaces the sync engine uses to talk to Spotify
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Catalog reads artist and album data.
type Catalog interface {
	// SearchArtist returns the best artist match for query, or [shared.ErrArtistNotFound].
	SearchArtist(ctx context.Context, query string) (*SpotifyArtist, error)

	// ArtistAlbums returns the first page of an artist's albums and singles, in service order.
	ArtistAlbums(ctx context.Context, artistID string, limit int) (*SpotifyAlbumPage, error)

	// AlbumTracks returns every track on an album, following pagination.
	AlbumTracks(ctx context.Context, albumID string) ([]SpotifySimpleTrack, error)

	// ArtistTopTracks returns an artist's most popular tracks in market.
	ArtistTopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, error)

	// SeveralArtists returns full artist objects (with genres) for up to 50 IDs.
	SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error)
}

// PlaylistWriter overwrites or appends playlist contents. Each call carries at most [MaxPlaylistBatch] URIs.
type PlaylistWriter interface {
	ReplacePlaylistItems(ctx context.Context, playlistID string, uris []string) error
	AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error
}

// PlaylistManager creates, renames and lists playlists.
type PlaylistManager interface {
	CurrentUser(ctx context.Context) (*SpotifyUser, error)
	CreatePlaylist(ctx context.Context, userID string, details PlaylistDetails) (*SpotifyPlaylist, error)
	ChangePlaylistDetails(ctx context.Context, playlistID string, details PlaylistDetails) error

	// PlaylistItems lists every item of a playlist given by ID, URI or open.spotify.com URL.
	PlaylistItems(ctx context.Context, playlist string) ([]SpotifyPlaylistTrack, error)
}

// Service is the full Spotify surface used by the CLI.
type Service interface {
	Catalog
	PlaylistWriter
	PlaylistManager

	// Name returns the name of the service
	Name() string
}

// OAuthService extends [Service] for the authorization-code flow.
type OAuthService interface {
	Service

	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// PlaylistDetails are the user-editable playlist fields.
type PlaylistDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}
