// Package search looks tracks up on Spotify and turns the results into
// chat-ready replies.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"jukebot/internal/domain"
)

// SpotifyConfig holds the client-credentials settings for the Web API.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Market       string // ISO 3166-1 alpha-2, e.g. "US"
	Logger       *slog.Logger

	// Limiter throttles requests; nil disables throttling.
	Limiter *RateLimiter

	// HTTPClient and BaseURL override the authenticated client and the API
	// endpoint. Used in tests.
	HTTPClient *http.Client
	BaseURL    string
}

// Spotify implements domain.TrackSearcher against the Spotify Web API.
type Spotify struct {
	client  *spotify.Client
	market  string
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewSpotify(ctx context.Context, cfg SpotifyConfig) *Spotify {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		httpClient = creds.Client(ctx)
	}
	market := strings.ToUpper(cfg.Market)
	if market == "" {
		market = "US"
	}
	var opts []spotify.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(cfg.BaseURL))
	}
	return &Spotify{
		client:  spotify.New(httpClient, opts...),
		market:  market,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
	}
}

// Market returns the market searches are restricted to.
func (s *Spotify) Market() string { return s.market }

func (s *Spotify) Search(ctx context.Context, query string, limit int) ([]domain.TrackMetadata, error) {
	s.logger.Debug("spotify search", "query", query, "limit", limit, "market", s.market)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("spotify search: %w", err)
		}
	}

	res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack,
		spotify.Market(s.market), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, domain.ErrNoResults
	}

	tracks := make([]domain.TrackMetadata, 0, len(res.Tracks.Tracks))
	for i := range res.Tracks.Tracks {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, convertTrack(&res.Tracks.Tracks[i]))
	}
	return tracks, nil
}

func convertTrack(t *spotify.FullTrack) domain.TrackMetadata {
	artist := "Unknown"
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	var artwork string
	if n := len(t.Album.Images); n > 0 {
		artwork = t.Album.Images[n-1].URL
	}
	return domain.TrackMetadata{
		Artist:     artist,
		Title:      t.Name,
		Album:      t.Album.Name,
		Duration:   time.Duration(t.Duration) * time.Millisecond,
		URI:        string(t.URI),
		ArtworkURL: artwork,
	}
}
