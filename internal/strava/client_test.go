package strava

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAthleteActivities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete/activities" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Fatalf("missing bearer token")
		}
		if r.URL.Query().Get("per_page") != "30" || r.URL.Query().Get("after") != "1700000000" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":9001,"name":"Morning Run","type":"Run","start_date":"2023-11-14T22:13:20Z","moving_time":600,"elapsed_time":620,"distance":2000.5}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	activities, err := c.AthleteActivities(context.Background(), "token-1", ActivitiesParams{After: 1700000000, PerPage: 30})
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity")
	}
	a := activities[0]
	if a.ID != 9001 || a.Name != "Morning Run" || a.ElapsedTime != 620 {
		t.Fatalf("unexpected activity: %+v", a)
	}
	if a.StartDate.Unix() != 1700000000 {
		t.Fatalf("unexpected start date: %v", a.StartDate)
	}
}

func TestActivityStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/9001/streams" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key_by_type") != "true" || q.Get("keys") == "" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"time":{"data":[0,60,120]},
			"latlng":{"data":[[48.85,2.35],[48.851,2.35],[48.852,2.35]]},
			"heartrate":{"data":[null,150,151]}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	streams, err := c.ActivityStreams(context.Background(), "token-1", 9001)
	if err != nil {
		t.Fatalf("streams: %v", err)
	}
	if len(streams.Time.Data) != 3 || len(streams.LatLng.Data) != 3 {
		t.Fatalf("unexpected stream lengths")
	}
	if streams.HeartRate.Data[0] != nil || *streams.HeartRate.Data[1] != 150 {
		t.Fatalf("null handling broken")
	}
}

func TestActivityDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Hill Repeats","type":"Run"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	a, err := c.ActivityDetails(context.Background(), "token-1", 42)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if a.ID != 42 || a.Name != "Hill Repeats" {
		t.Fatalf("unexpected activity: %+v", a)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authorization Error"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AthleteActivities(context.Background(), "bad-token", ActivitiesParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if apiErr.Body != `{"message":"Authorization Error"}` {
		t.Fatalf("unexpected body %q", apiErr.Body)
	}
}

func TestAPIErrorBodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AthleteActivities(context.Background(), "token", ActivitiesParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if len(apiErr.Body) != 512 {
		t.Fatalf("expected capped body, got %d bytes", len(apiErr.Body))
	}
}

func TestDefaultBaseURL(t *testing.T) {
	c := NewClient("")
	if c.baseURL != DefaultBaseURL {
		t.Fatalf("expected default base url")
	}
}
