package music

import (
	"context"
	"errors"
	"time"

	"github.com/ninouGx/run-sous-bpm/internal/activity"
	"github.com/ninouGx/run-sous-bpm/internal/db"
	"github.com/ninouGx/run-sous-bpm/internal/lastfm"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrNotActivityOwner = errors.New("activity does not belong to the user")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoLastfmUsername = errors.New("user has no lastfm username configured")
)

// LastfmAPI is the part of the Last.fm client the sync path uses.
type LastfmAPI interface {
	RecentTracks(ctx context.Context, username string, from, to time.Time) ([]lastfm.Track, error)
}

type Service struct {
	db       db.Querier
	activity *activity.Service
	lastfm   LastfmAPI
}

func NewService(db db.Querier, activitySvc *activity.Service, api LastfmAPI) *Service {
	return &Service{db: db, activity: activitySvc, lastfm: api}
}

// ActivitySegments partitions an activity's stored GPS streams into
// listen-aligned segments, pulling scrobbles from Last.fm first when none
// are stored for the activity window yet. A user without a configured
// Last.fm username gets ErrNoLastfmUsername even when the activity exists.
func (s *Service) ActivitySegments(ctx context.Context, userID, activityID string, simplify bool, tolerance *float64) (ActivitySegmentsResponse, error) {
	act, err := s.activity.Get(ctx, activityID)
	if errors.Is(err, activity.ErrNotFound) {
		return ActivitySegmentsResponse{}, ErrActivityNotFound
	}
	if err != nil {
		return ActivitySegmentsResponse{}, err
	}
	if act.UserID != userID {
		return ActivitySegmentsResponse{}, ErrNotActivityOwner
	}

	start, end := act.StartTime, act.EndTime()

	listens, err := s.listensBetween(ctx, userID, start, end)
	if err != nil {
		return ActivitySegmentsResponse{}, err
	}

	// No stored scrobbles for this window yet; pull once from Last.fm.
	if len(listens) == 0 {
		username, err := s.lastfmUsername(ctx, userID)
		if err != nil {
			return ActivitySegmentsResponse{}, err
		}
		if _, err := s.SyncListens(ctx, userID, username, start, end); err != nil {
			return ActivitySegmentsResponse{}, err
		}
		if listens, err = s.listensBetween(ctx, userID, start, end); err != nil {
			return ActivitySegmentsResponse{}, err
		}
	}

	streams, err := s.activity.Streams(ctx, activityID)
	if err != nil {
		return ActivitySegmentsResponse{}, err
	}

	originalPoints := CountGpsPoints(streams, start, end)

	segments, err := BuildSegments(streams, listens, start, end, simplify, tolerance)
	if err != nil {
		return ActivitySegmentsResponse{}, err
	}

	hasPoints := false
	for _, seg := range segments {
		if len(seg.Points) > 0 {
			hasPoints = true
			break
		}
	}

	return ActivitySegmentsResponse{
		ActivityID: activityID,
		HasGps:     hasPoints,
		Segments:   segments,
		Stats:      CalculateStats(segments, originalPoints),
	}, nil
}

// ActivityMusic lists the tracks played during an activity, in play order.
func (s *Service) ActivityMusic(ctx context.Context, userID, activityID string) ([]TrackWithTimestamp, error) {
	act, err := s.activity.Get(ctx, activityID)
	if errors.Is(err, activity.ErrNotFound) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	if act.UserID != userID {
		return nil, ErrNotActivityOwner
	}

	rows, err := s.db.Query(ctx, `
		SELECT l.played_at, t.track_name, t.artist_name, t.album_name, t.id, l.id
		FROM listens l
		JOIN tracks t ON t.id = l.track_id
		WHERE l.user_id=$1 AND l.played_at >= $2 AND l.played_at <= $3
		ORDER BY l.played_at
	`, userID, act.StartTime, act.EndTime())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackWithTimestamp
	for rows.Next() {
		var t TrackWithTimestamp
		if err := rows.Scan(&t.PlayedAt, &t.TrackName, &t.ArtistName, &t.AlbumName, &t.TrackID, &t.ListenID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ListensInRange returns the user's stored listens in [from, to].
func (s *Service) ListensInRange(ctx context.Context, userID string, from, to time.Time) ([]TrackWithTimestamp, error) {
	rows, err := s.db.Query(ctx, `
		SELECT l.played_at, t.track_name, t.artist_name, t.album_name, t.id, l.id
		FROM listens l
		JOIN tracks t ON t.id = l.track_id
		WHERE l.user_id=$1 AND l.played_at >= $2 AND l.played_at <= $3
		ORDER BY l.played_at
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackWithTimestamp
	for rows.Next() {
		var t TrackWithTimestamp
		if err := rows.Scan(&t.PlayedAt, &t.TrackName, &t.ArtistName, &t.AlbumName, &t.TrackID, &t.ListenID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SyncListens pulls scrobbles from Last.fm for the window and stores any
// not already held. Tracks dedupe on (artist_name, track_name); listens
// dedupe on (user_id, track_id, played_at).
func (s *Service) SyncListens(ctx context.Context, userID, username string, from, to time.Time) (int, error) {
	scrobbles, err := s.lastfm.RecentTracks(ctx, username, from, to)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, sc := range scrobbles {
		if sc.PlayedAt.IsZero() {
			continue
		}

		trackID, err := s.upsertTrack(ctx, sc)
		if err != nil {
			return inserted, err
		}

		tag, err := s.db.Exec(ctx, `
			INSERT INTO listens (id, user_id, track_id, played_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (user_id, track_id, played_at) DO NOTHING
		`, uuid.NewString(), userID, trackID, sc.PlayedAt)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// LastfmUsername returns the user's configured Last.fm account name.
func (s *Service) LastfmUsername(ctx context.Context, userID string) (string, error) {
	return s.lastfmUsername(ctx, userID)
}

func (s *Service) lastfmUsername(ctx context.Context, userID string) (string, error) {
	row := s.db.QueryRow(ctx, `SELECT lastfm_username FROM users WHERE id=$1`, userID)

	var username *string
	if err := row.Scan(&username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if username == nil || *username == "" {
		return "", ErrNoLastfmUsername
	}
	return *username, nil
}

func (s *Service) upsertTrack(ctx context.Context, sc lastfm.Track) (string, error) {
	var album, mbid, trackURL *string
	if sc.Album != "" {
		album = &sc.Album
	}
	if sc.MBID != "" {
		mbid = &sc.MBID
	}
	if sc.URL != "" {
		trackURL = &sc.URL
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tracks (id, track_name, artist_name, album_name, track_mbid, lastfm_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (artist_name, track_name) DO UPDATE SET
			album_name=COALESCE(tracks.album_name, EXCLUDED.album_name),
			track_mbid=COALESCE(tracks.track_mbid, EXCLUDED.track_mbid),
			lastfm_url=COALESCE(tracks.lastfm_url, EXCLUDED.lastfm_url)
		RETURNING id
	`, uuid.NewString(), sc.Name, sc.Artist, album, mbid, trackURL)

	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) listensBetween(ctx context.Context, userID string, from, to time.Time) ([]ListenWithTrack, error) {
	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.user_id, l.track_id, l.played_at,
		       t.id, t.track_name, t.artist_name, t.album_name
		FROM listens l
		LEFT JOIN tracks t ON t.id = l.track_id
		WHERE l.user_id=$1 AND l.played_at >= $2 AND l.played_at <= $3
		ORDER BY l.played_at
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listens []ListenWithTrack
	for rows.Next() {
		var lt ListenWithTrack
		var trackID, trackName, artistName *string
		var albumName *string
		if err := rows.Scan(&lt.Listen.ID, &lt.Listen.UserID, &lt.Listen.TrackID, &lt.Listen.PlayedAt,
			&trackID, &trackName, &artistName, &albumName); err != nil {
			return nil, err
		}
		if trackID != nil {
			lt.Track = &Track{
				ID:         *trackID,
				TrackName:  derefString(trackName),
				ArtistName: derefString(artistName),
				AlbumName:  albumName,
			}
		}
		listens = append(listens, lt)
	}
	return listens, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
