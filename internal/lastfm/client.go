package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// pageSize is the Last.fm maximum for user.getrecenttracks.
const pageSize = 200

// Client talks to the Last.fm REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Track is one scrobble from a user's listening history.
type Track struct {
	Name     string
	Artist   string
	Album    string
	URL      string
	MBID     string
	PlayedAt time.Time
}

// Last.fm wraps most scalar fields in objects keyed by "#text".
type textField struct {
	Text string `json:"#text"`
	MBID string `json:"mbid"`
}

type recentTracksResponse struct {
	RecentTracks struct {
		Track []struct {
			Name   string    `json:"name"`
			MBID   string    `json:"mbid"`
			URL    string    `json:"url"`
			Artist textField `json:"artist"`
			Album  textField `json:"album"`
			Date   *struct {
				UTS string `json:"uts"`
			} `json:"date"`
		} `json:"track"`
		Attr struct {
			TotalPages string `json:"totalPages"`
		} `json:"@attr"`
	} `json:"recenttracks"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// RecentTracks fetches all scrobbles for a user in [from, to], walking the
// paginated response. Now-playing entries carry no date and are skipped.
// Results come back in ascending played-at order.
func (c *Client) RecentTracks(ctx context.Context, username string, from, to time.Time) ([]Track, error) {
	var tracks []Track

	page := 1
	for {
		resp, err := c.fetchPage(ctx, username, from, to, page)
		if err != nil {
			return nil, err
		}
		if resp.Error != 0 {
			return nil, fmt.Errorf("lastfm error %d: %s", resp.Error, resp.Message)
		}

		for _, t := range resp.RecentTracks.Track {
			if t.Date == nil {
				continue
			}
			uts, err := strconv.ParseInt(t.Date.UTS, 10, 64)
			if err != nil {
				continue
			}
			tracks = append(tracks, Track{
				Name:     t.Name,
				Artist:   t.Artist.Text,
				Album:    t.Album.Text,
				URL:      t.URL,
				MBID:     t.MBID,
				PlayedAt: time.Unix(uts, 0).UTC(),
			})
		}

		totalPages, _ := strconv.Atoi(resp.RecentTracks.Attr.TotalPages)
		if page >= totalPages {
			break
		}
		page++
	}

	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].PlayedAt.Before(tracks[j].PlayedAt)
	})
	return tracks, nil
}

func (c *Client) fetchPage(ctx context.Context, username string, from, to time.Time, page int) (*recentTracksResponse, error) {
	q := url.Values{}
	q.Set("method", "user.getrecenttracks")
	q.Set("user", username)
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lastfm: unexpected status %d", res.StatusCode)
	}

	var out recentTracksResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
