package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/freshlist/internal/server"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	spotifyService, err := services.NewSpotifyService(creds.Map(), r.spotifyOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, spotifyService, "authorization")
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("%s", ui.Success("✓ Authorization successful"))
	r.writePlain("%s\n\n", ui.Success("✓ Tokens saved to "+r.configPath))
	r.writePlain("You can now use: freshlist add <artist>\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	serverAddr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		serverErrors <- server.Serve(ctx, serverAddr, router)
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s", ui.Warning("⚠ Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
		cancel()
		if err := <-serverErrors; err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	case err := <-serverErrors:
		if err != nil {
			return nil, fmt.Errorf("server error: %w", err)
		}
		return nil, fmt.Errorf("%w: authorization did not complete within %s", shared.ErrTimeout, authTimeout)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// SpotifyReauth runs the OAuth2 flow again, saves the new tokens and installs them on the client.
func (r *Runner) SpotifyReauth(ctx context.Context, srv services.OAuthService) error {
	token, err := r.doOAuth(ctx, srv, "reauthorization")
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := srv.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("%s", ui.Success("✓ Reauthorization successful"))
	return nil
}

// handleSpotifyAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	r.writePlainln("%s", ui.Warning("⚠ Authentication token expired. Starting reauthorization..."))

	spotifyService, ok := r.spotify.(services.OAuthService)
	if !ok {
		return true, fmt.Errorf("%w: spotify service does not support reauthorization", shared.ErrTokenExpired)
	}
	if err := r.SpotifyReauth(ctx, spotifyService); err != nil {
		return true, fmt.Errorf("reauthorization failed: %w", err)
	}

	r.writePlain("Retrying operation...\n")
	return true, nil
}

// withReauth runs fn, reauthorizing and retrying once when Spotify rejects the stored token.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	if reauthed, authErr := r.handleSpotifyAuthError(ctx, err); reauthed {
		if authErr != nil {
			return authErr
		}
		return fn()
	}
	return err
}
