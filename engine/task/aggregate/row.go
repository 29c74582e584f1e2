package aggregate

import "time"

// Row is one record of the task join: an app task (top level or subtask)
// multiplied by its optional param, route, station and event groups. Codes
// are already resolved from reference ids by the row source.
type Row struct {
	ID           int64      `db:"id"`
	OwnerID      int64      `db:"owner_id"`
	ParentID     int64      `db:"parent_id"`
	PlannedStart time.Time  `db:"planned_start"`
	PlannedEnd   time.Time  `db:"planned_end"`
	ActualStart  *time.Time `db:"actual_start"`
	ActualEnd    *time.Time `db:"actual_end"`
	StatusCode   string     `db:"status_code"`
	TypeCode     string     `db:"type_code"`
	Text         string     `db:"text"`

	ParamTypeCode *string `db:"param_type_code"`

	RouteID              *int64  `db:"route_id"`
	RouteTemperature     *int    `db:"route_temperature"`
	RouteName            *string `db:"route_name"`
	TruckID              *int64  `db:"truck_id"`
	TruckCertification   *string `db:"truck_certification"`
	TrailerID            *int64  `db:"trailer_id"`
	TrailerCertification *string `db:"trailer_certification"`

	StationID   *int64   `db:"station_id"`
	StationName *string  `db:"station_name"`
	StationLat  *float64 `db:"station_lat"`
	StationLon  *float64 `db:"station_lon"`

	EventID       *int64            `db:"event_id"`
	EventKindCode *string           `db:"event_kind_code"`
	EventText     *string           `db:"event_text"`
	EventOwnerID  *int64            `db:"event_owner_id"`
	EventAt       *time.Time        `db:"event_at"`
	EventPayload  map[string]string `db:"-"`
}

// IsTopLevel reports whether the row describes a task rather than a subtask.
func (r *Row) IsTopLevel() bool {
	return r.ID == r.ParentID
}

func (r *Row) hasRoute() bool {
	return r.RouteID != nil
}

func (r *Row) hasStation() bool {
	return r.StationID != nil
}

func (r *Row) hasEvent() bool {
	return r.EventID != nil
}

func (r *Row) taggedWith(code string) bool {
	if code == "" {
		return true
	}
	return r.ParamTypeCode != nil && *r.ParamTypeCode == code
}
