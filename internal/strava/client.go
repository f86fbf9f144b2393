// Package strava is a thin client for the Strava v3 REST API. Token
// acquisition and refresh live elsewhere; every call takes an access token.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://www.strava.com/api/v3"

// streamKeys are the stream types fetched for every activity.
const streamKeys = "latlng,time,altitude,heartrate,cadence,watts,velocity_smooth,distance,temp"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Activity mirrors the fields of a Strava activity summary this service
// stores.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
}

// ActivitiesParams narrows the athlete activities listing. Zero values are
// omitted from the query.
type ActivitiesParams struct {
	Before  int64
	After   int64
	Page    int
	PerPage int
}

// StreamSet is the key_by_type=true streams response. Parallel arrays are
// aligned by index; value streams use pointers because Strava emits nulls
// for samples a sensor missed.
type StreamSet struct {
	Time      TimeStream   `json:"time"`
	LatLng    LatLngStream `json:"latlng"`
	Altitude  FloatStream  `json:"altitude"`
	HeartRate IntStream    `json:"heartrate"`
	Cadence   IntStream    `json:"cadence"`
	Watts     FloatStream  `json:"watts"`
	Velocity  FloatStream  `json:"velocity_smooth"`
	Distance  FloatStream  `json:"distance"`
	Temp      FloatStream  `json:"temp"`
}

type TimeStream struct {
	Data []int64 `json:"data"`
}

type LatLngStream struct {
	Data [][]float64 `json:"data"`
}

type FloatStream struct {
	Data []*float64 `json:"data"`
}

type IntStream struct {
	Data []*int `json:"data"`
}

// APIError carries the status of a non-2xx Strava response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava api status %d: %s", e.StatusCode, e.Body)
}

// AthleteActivities fetches the authenticated athlete's activities.
func (c *Client) AthleteActivities(ctx context.Context, accessToken string, params ActivitiesParams) ([]Activity, error) {
	query := url.Values{}
	if params.Before > 0 {
		query.Set("before", strconv.FormatInt(params.Before, 10))
	}
	if params.After > 0 {
		query.Set("after", strconv.FormatInt(params.After, 10))
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}

	var activities []Activity
	if err := c.get(ctx, accessToken, "/athlete/activities", query, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// ActivityDetails fetches one activity by its Strava id.
func (c *Client) ActivityDetails(ctx context.Context, accessToken string, externalID int64) (Activity, error) {
	var activity Activity
	path := fmt.Sprintf("/activities/%d", externalID)
	if err := c.get(ctx, accessToken, path, nil, &activity); err != nil {
		return Activity{}, err
	}
	return activity, nil
}

// ActivityStreams fetches the sensor streams for one activity, keyed by
// stream type.
func (c *Client) ActivityStreams(ctx context.Context, accessToken string, externalID int64) (StreamSet, error) {
	query := url.Values{}
	query.Set("keys", streamKeys)
	query.Set("key_by_type", "true")
	query.Set("series_type", "distance")

	var streams StreamSet
	path := fmt.Sprintf("/activities/%d/streams", externalID)
	if err := c.get(ctx, accessToken, path, query, &streams); err != nil {
		return StreamSet{}, err
	}
	return streams, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
