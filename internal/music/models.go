package music

import (
	"time"

	"github.com/ninouGx/run-sous-bpm/internal/activity"
)

type Track struct {
	ID         string  `json:"id"`
	TrackName  string  `json:"track_name"`
	ArtistName string  `json:"artist_name"`
	AlbumName  *string `json:"album_name,omitempty"`
	TrackMbid  *string `json:"-"`
	LastfmURL  *string `json:"-"`
}

type Listen struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	TrackID  string    `json:"track_id"`
	PlayedAt time.Time `json:"played_at"`
}

// ListenWithTrack pairs a listen with its resolved track. Track is nil when
// the lookup failed; such a listen still bounds a segment.
type ListenWithTrack struct {
	Listen Listen
	Track  *Track
}

// Segment is a contiguous time window of an activity associated with at
// most one playing track. The interval is half-open except the final
// segment, whose end is the activity end, inclusive.
type Segment struct {
	Index     int                    `json:"index"`
	Track     *Track                 `json:"track,omitempty"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Points    []activity.StreamPoint `json:"points"`
}

// SimplificationStats aggregates one segment-building pass.
type SimplificationStats struct {
	TotalSegments        int     `json:"total_segments"`
	SegmentsWithMusic    int     `json:"segments_with_music"`
	SegmentsWithoutMusic int     `json:"segments_without_music"`
	OriginalPoints       int     `json:"original_points"`
	SimplifiedPoints     int     `json:"simplified_points"`
	ReductionRatio       float32 `json:"reduction_ratio"`
}

// ActivitySegmentsResponse is the GET /activities/:id/segments payload.
type ActivitySegmentsResponse struct {
	ActivityID string              `json:"activity_id"`
	HasGps     bool                `json:"has_gps"`
	Segments   []Segment           `json:"segments"`
	Stats      SimplificationStats `json:"stats"`
}

// TrackWithTimestamp is one row of the GET /activities/:id/music payload.
type TrackWithTimestamp struct {
	PlayedAt   time.Time `json:"played_at"`
	TrackName  string    `json:"track_name"`
	ArtistName string    `json:"artist_name"`
	AlbumName  *string   `json:"album_name,omitempty"`
	TrackID    string    `json:"track_id"`
	ListenID   string    `json:"listen_id"`
}
