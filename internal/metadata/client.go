package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelqueue/reelqueue/internal/domain"
)

const (
	// DefaultBaseURL is the production metadata API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	imageBaseURL  = "https://image.tmdb.org/t/p/w500"
	maxCandidates = 5
)

// Details carries the follow-up fields fetched per movie to prefill a draft.
type Details struct {
	Runtime int
	Genres  []string
}

// Client performs read-only lookups against the movie metadata API. Search is
// an optional enhancement, so every failure degrades to an empty result
// instead of propagating.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// New constructs a metadata client. An empty API key is allowed; the client
// then answers every lookup locally with an empty result.
func New(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	return &Client{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// SearchByTitle returns up to five candidates in provider relevance order.
// Blank queries and a missing API key return immediately without a network
// call; provider errors are swallowed to an empty list.
func (c *Client) SearchByTitle(ctx context.Context, query string) []domain.SearchCandidate {
	query = strings.TrimSpace(query)
	if query == "" || c.apiKey == "" {
		return nil
	}

	endpoint := c.baseURL.JoinPath("search", "movie")
	q := endpoint.Query()
	q.Set("api_key", c.apiKey)
	q.Set("query", query)
	endpoint.RawQuery = q.Encode()

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint.String(), &payload); err != nil {
		c.logger.Printf("metadata: search %q failed: %v", query, err)
		return nil
	}

	candidates := make([]domain.SearchCandidate, 0, maxCandidates)
	for _, result := range payload.Results {
		if len(candidates) == maxCandidates {
			break
		}
		candidates = append(candidates, domain.SearchCandidate{
			ExternalID:  strconv.FormatInt(result.ID, 10),
			Title:       result.Title,
			PosterPath:  result.PosterPath,
			ReleaseDate: result.ReleaseDate,
			Overview:    result.Overview,
		})
	}
	return candidates
}

// FetchDetails looks up the genre names and runtime minutes for one external
// id. Returns nil on any error or when the key is absent.
func (c *Client) FetchDetails(ctx context.Context, externalID string) *Details {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || c.apiKey == "" {
		return nil
	}

	endpoint := c.baseURL.JoinPath("movie", externalID)
	q := endpoint.Query()
	q.Set("api_key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	var payload detailResponse
	if err := c.getJSON(ctx, endpoint.String(), &payload); err != nil {
		c.logger.Printf("metadata: details %s failed: %v", externalID, err)
		return nil
	}

	genres := make([]string, 0, len(payload.Genres))
	for _, g := range payload.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	return &Details{Runtime: payload.Runtime, Genres: genres}
}

// PosterURL resolves a relative poster path against the image CDN. Empty
// paths stay empty.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return imageBaseURL + path
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata: upstream returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode metadata response: %w", err)
	}
	return nil
}

type searchResponse struct {
	Results []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		PosterPath  string `json:"poster_path"`
		ReleaseDate string `json:"release_date"`
		Overview    string `json:"overview"`
	} `json:"results"`
}

type detailResponse struct {
	Runtime int `json:"runtime"`
	Genres  []struct {
		Name string `json:"name"`
	} `json:"genres"`
}
