package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ninouGx/run-sous-bpm/internal/db"
	"github.com/ninouGx/run-sous-bpm/internal/shared/geo"
	"github.com/ninouGx/run-sous-bpm/internal/strava"
	"github.com/ninouGx/run-sous-bpm/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("activity not found")

// streamInsertChunk bounds the number of rows per INSERT when storing
// sensor streams; a multi-hour ride can carry tens of thousands of samples.
const streamInsertChunk = 500

// StravaAPI is the part of the Strava client the sync path uses.
type StravaAPI interface {
	AthleteActivities(ctx context.Context, accessToken string, params strava.ActivitiesParams) ([]strava.Activity, error)
	ActivityStreams(ctx context.Context, accessToken string, externalID int64) (strava.StreamSet, error)
}

type Service struct {
	db     db.Querier
	strava StravaAPI
	hub    *stream.Hub
}

func NewService(db db.Querier, api StravaAPI, hub *stream.Hub) *Service {
	return &Service{db: db, strava: api, hub: hub}
}

func (s *Service) List(ctx context.Context, userID string) ([]Activity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, external_id, name, COALESCE(description,''), type, start_time,
		       moving_time, elapsed_time, timezone, distance, total_elevation_gain, created_at, updated_at
		FROM activities WHERE user_id=$1
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ExternalID, &a.Name, &a.Description, &a.Type, &a.StartTime,
			&a.MovingTime, &a.ElapsedTime, &a.Timezone, &a.Distance, &a.TotalElevationGain, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, external_id, name, COALESCE(description,''), type, start_time,
		       moving_time, elapsed_time, timezone, distance, total_elevation_gain, created_at, updated_at
		FROM activities WHERE id=$1
	`, id)

	var a Activity
	err := row.Scan(&a.ID, &a.UserID, &a.ExternalID, &a.Name, &a.Description, &a.Type, &a.StartTime,
		&a.MovingTime, &a.ElapsedTime, &a.Timezone, &a.Distance, &a.TotalElevationGain, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Streams returns the full ordered sensor stream for an activity.
func (s *Service) Streams(ctx context.Context, activityID string) ([]StreamPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT time, latitude, longitude, altitude, heart_rate, cadence, watts, velocity, distance, temperature
		FROM activity_streams WHERE activity_id=$1
		ORDER BY time
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []StreamPoint
	for rows.Next() {
		var p StreamPoint
		if err := rows.Scan(&p.Time, &p.Lat, &p.Lng, &p.Altitude, &p.HeartRate, &p.Cadence,
			&p.Watts, &p.Velocity, &p.Distance, &p.Temperature); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Sync pulls the athlete's activities and their sensor streams from Strava
// and stores them, replacing any streams already held for an activity.
func (s *Service) Sync(ctx context.Context, userID, accessToken string, params strava.ActivitiesParams) (SyncResult, error) {
	remote, err := s.strava.AthleteActivities(ctx, accessToken, params)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	for _, r := range remote {
		activityID, err := s.upsert(ctx, userID, r)
		if err != nil {
			return result, err
		}

		streams, err := s.strava.ActivityStreams(ctx, accessToken, r.ID)
		if err != nil {
			return result, err
		}

		points := convertStreams(r.StartDate, streams)
		if err := s.replaceStreamPoints(ctx, activityID, points); err != nil {
			return result, err
		}

		// Strava omits distance for some manual uploads; rebuild it from GPS.
		if r.Distance == 0 {
			if d := trackDistanceM(points); d > 0 {
				if _, err := s.db.Exec(ctx, `UPDATE activities SET distance=$2 WHERE id=$1`, activityID, d); err != nil {
					return result, err
				}
			}
		}

		result.Activities++
		result.Points += len(points)

		if s.hub != nil {
			payload, _ := json.Marshal(stream.Event{
				Type:       "activity_synced",
				ActivityID: activityID,
				Points:     len(points),
			})
			s.hub.Broadcast(activityID, payload)
		}
	}
	return result, nil
}

func (s *Service) upsert(ctx context.Context, userID string, r strava.Activity) (string, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO activities (id, user_id, external_id, name, description, type, start_time,
		                        moving_time, elapsed_time, timezone, distance, total_elevation_gain)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			name=EXCLUDED.name, description=EXCLUDED.description, type=EXCLUDED.type,
			start_time=EXCLUDED.start_time, moving_time=EXCLUDED.moving_time,
			elapsed_time=EXCLUDED.elapsed_time, timezone=EXCLUDED.timezone,
			distance=EXCLUDED.distance, total_elevation_gain=EXCLUDED.total_elevation_gain,
			updated_at=now()
		RETURNING id
	`, uuid.NewString(), userID, r.ID, r.Name, r.Description, r.Type, r.StartDate,
		r.MovingTime, r.ElapsedTime, r.Timezone, r.Distance, r.TotalElevationGain)

	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) replaceStreamPoints(ctx context.Context, activityID string, points []StreamPoint) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM activity_streams WHERE activity_id=$1`, activityID); err != nil {
		return err
	}

	for offset := 0; offset < len(points); offset += streamInsertChunk {
		end := offset + streamInsertChunk
		if end > len(points) {
			end = len(points)
		}
		chunk := points[offset:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO activity_streams (activity_id, time, latitude, longitude, altitude, heart_rate, cadence, watts, velocity, distance, temperature) VALUES `)
		args := make([]any, 0, len(chunk)*11)
		for i, p := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			base := i * 11
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11)
			args = append(args, activityID, p.Time, p.Lat, p.Lng, p.Altitude, p.HeartRate,
				p.Cadence, p.Watts, p.Velocity, p.Distance, p.Temperature)
		}
		if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// convertStreams aligns the parallel Strava stream arrays into rows. The
// time stream drives the row count; other streams contribute when they have
// a value at that index.
func convertStreams(start time.Time, set strava.StreamSet) []StreamPoint {
	n := len(set.Time.Data)
	points := make([]StreamPoint, 0, n)
	for i := 0; i < n; i++ {
		p := StreamPoint{Time: start.Add(time.Duration(set.Time.Data[i]) * time.Second)}
		if i < len(set.LatLng.Data) && len(set.LatLng.Data[i]) == 2 {
			lat, lng := set.LatLng.Data[i][0], set.LatLng.Data[i][1]
			p.Lat, p.Lng = &lat, &lng
		}
		if i < len(set.Altitude.Data) {
			p.Altitude = set.Altitude.Data[i]
		}
		if i < len(set.HeartRate.Data) {
			p.HeartRate = set.HeartRate.Data[i]
		}
		if i < len(set.Cadence.Data) {
			p.Cadence = set.Cadence.Data[i]
		}
		if i < len(set.Watts.Data) {
			p.Watts = set.Watts.Data[i]
		}
		if i < len(set.Velocity.Data) {
			p.Velocity = set.Velocity.Data[i]
		}
		if i < len(set.Distance.Data) {
			p.Distance = set.Distance.Data[i]
		}
		if i < len(set.Temp.Data) {
			p.Temperature = set.Temp.Data[i]
		}
		points = append(points, p)
	}
	return points
}

// trackDistanceM sums the haversine distance over consecutive GPS fixes.
func trackDistanceM(points []StreamPoint) float64 {
	total := 0.0
	var prev *StreamPoint
	for i := range points {
		if !points[i].HasGps() {
			continue
		}
		if prev != nil {
			total += geo.HaversineKm(*prev.Lat, *prev.Lng, *points[i].Lat, *points[i].Lng) * 1000
		}
		prev = &points[i]
	}
	return total
}
