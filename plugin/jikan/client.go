// Package jikan is a minimal client for the Jikan v4 anime catalog API.
// Jikan allows roughly 3 calls per second; every request waits on a
// shared limiter enforcing at least 400ms between calls.
package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Jikan v4 endpoint.
	DefaultBaseURL = "https://api.jikan.moe/v4"

	// rateLimitDelay is the mandatory minimum gap between remote calls.
	rateLimitDelay = 400 * time.Millisecond

	// maxSearchLimit is the largest page size Jikan accepts.
	maxSearchLimit = 25
)

// ErrAnimeNotFound marks a definitive remote 404. It must not be retried.
var ErrAnimeNotFound = errors.New("anime not found")

// Anime is the normalized catalog record.
type Anime struct {
	MALID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleJapanese string   `json:"title_japanese,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Score         *float64 `json:"score"`
	Genres        []string `json:"genres"`
	Episodes      *int     `json:"episodes"`
	Status        string   `json:"status,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	URL           string   `json:"url"`
}

// SearchResult carries one page of search hits plus the remote-reported total.
type SearchResult struct {
	Animes []*Anime
	Total  int
}

// Client calls the Jikan API with rate limiting.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Jikan client. An empty baseURL selects the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(rateLimitDelay), 1),
	}
}

// GetAnimeByID fetches a single record. A remote 404 returns
// ErrAnimeNotFound; every other failure is transient.
func (c *Client) GetAnimeByID(ctx context.Context, malID int) (*Anime, error) {
	var payload struct {
		Data animePayload `json:"data"`
	}
	endpoint := c.baseURL + "/anime/" + strconv.Itoa(malID)
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Data.normalize(), nil
}

// SearchAnime searches by free text, most popular first.
func (c *Client) SearchAnime(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", "members")
	params.Set("sort", "desc")

	var payload struct {
		Data       []animePayload `json:"data"`
		Pagination struct {
			Items struct {
				Total int `json:"total"`
			} `json:"items"`
		} `json:"pagination"`
	}
	endpoint := c.baseURL + "/anime?" + params.Encode()
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	animes := make([]*Anime, 0, len(payload.Data))
	for i := range payload.Data {
		animes = append(animes, payload.Data[i].normalize())
	}
	total := payload.Pagination.Items.Total
	if total == 0 {
		total = len(animes)
	}
	return &SearchResult{Animes: animes, Total: total}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jikan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrAnimeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jikan responded with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode jikan response: %w", err)
	}
	return nil
}

// animePayload mirrors the raw Jikan record shape.
type animePayload struct {
	MALID         int     `json:"mal_id"`
	Title         string  `json:"title"`
	TitleJapanese *string `json:"title_japanese"`
	Images        struct {
		JPG struct {
			ImageURL      *string `json:"image_url"`
			LargeImageURL *string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Score    *float64 `json:"score"`
	Genres   []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Episodes *int    `json:"episodes"`
	Status   *string `json:"status"`
	Synopsis *string `json:"synopsis"`
	URL      string  `json:"url"`
}

func (p *animePayload) normalize() *Anime {
	a := &Anime{
		MALID:    p.MALID,
		Title:    p.Title,
		Score:    p.Score,
		Episodes: p.Episodes,
		URL:      p.URL,
		Genres:   make([]string, 0, len(p.Genres)),
	}
	if p.TitleJapanese != nil {
		a.TitleJapanese = *p.TitleJapanese
	}
	// Prefer the large rendition when present.
	if p.Images.JPG.LargeImageURL != nil {
		a.ImageURL = *p.Images.JPG.LargeImageURL
	} else if p.Images.JPG.ImageURL != nil {
		a.ImageURL = *p.Images.JPG.ImageURL
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Synopsis != nil {
		a.Synopsis = *p.Synopsis
	}
	for _, g := range p.Genres {
		a.Genres = append(a.Genres, g.Name)
	}
	return a
}
