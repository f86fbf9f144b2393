package activity

import "time"

type Activity struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ExternalID         int64     `json:"external_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Type               string    `json:"type"`
	StartTime          time.Time `json:"start_time"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EndTime is the activity start plus its elapsed time.
func (a Activity) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.ElapsedTime) * time.Second)
}

// StreamPoint is one row of an activity's sensor time series. Everything
// except the timestamp is optional; latitude and longitude are either both
// set or both nil.
type StreamPoint struct {
	Time        time.Time `json:"time"`
	Lat         *float64  `json:"latitude,omitempty"`
	Lng         *float64  `json:"longitude,omitempty"`
	Altitude    *float64  `json:"altitude,omitempty"`
	HeartRate   *int      `json:"heart_rate,omitempty"`
	Cadence     *int      `json:"cadence,omitempty"`
	Watts       *float64  `json:"watts,omitempty"`
	Velocity    *float64  `json:"velocity,omitempty"`
	Distance    *float64  `json:"distance,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// HasGps reports whether the point carries a full coordinate pair.
func (p StreamPoint) HasGps() bool {
	return p.Lat != nil && p.Lng != nil
}

type SyncResult struct {
	Activities int `json:"activities"`
	Points     int `json:"points"`
}
