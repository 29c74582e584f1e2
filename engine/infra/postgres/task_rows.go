package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/tidwall/gjson"

	"github.com/mpdriver/mpdriver/engine/reference"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

var taskRowColumns = []string{
	"t.id_app_task AS id",
	"t.app_task_id_sotr AS owner_id",
	"t.app_task_id_app_task AS parent_id",
	"t.app_task_dt_start_pln AS planned_start",
	"t.app_task_dt_end_pln AS planned_end",
	"t.app_task_dt_start_fact AS actual_start",
	"t.app_task_dt_end_fact AS actual_end",
	"t.app_task_status AS status_id",
	"t.app_task_tip AS type_id",
	"t.app_task_text AS text",
	"p.app_param_tip AS param_type_id",
	"m.id_marsh AS route_id",
	"m.marsh_pr_tepl AS route_temperature",
	"m.marsh_name AS route_name",
	"truck.id_trs AS truck_id",
	"truck.trs_sid_gost AS truck_certification",
	"trailer.id_trs AS trailer_id",
	"trailer.trs_sid_gost AS trailer_certification",
	"s.id_mst AS station_id",
	"s.mst_name AS station_name",
	"s.mst_shir AS station_lat",
	"s.mst_dolg AS station_lon",
	"e.id_app_event AS event_id",
	"e.app_event_vid AS event_kind_id",
	"e.app_event_text AS event_text",
	"e.app_event_id_rec AS event_owner_id",
	"e.app_event_dt AS event_at",
	"e.app_event_data AS event_data",
}

type taskRowRecord struct {
	ID           int64      `db:"id"`
	OwnerID      int64      `db:"owner_id"`
	ParentID     int64      `db:"parent_id"`
	PlannedStart time.Time  `db:"planned_start"`
	PlannedEnd   time.Time  `db:"planned_end"`
	ActualStart  *time.Time `db:"actual_start"`
	ActualEnd    *time.Time `db:"actual_end"`
	StatusID     *int64     `db:"status_id"`
	TypeID       *int64     `db:"type_id"`
	Text         *string    `db:"text"`
	ParamTypeID  *int64     `db:"param_type_id"`

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

	EventID      *int64     `db:"event_id"`
	EventKindID  *int64     `db:"event_kind_id"`
	EventText    *string    `db:"event_text"`
	EventOwnerID *int64     `db:"event_owner_id"`
	EventAt      *time.Time `db:"event_at"`
	EventData    []byte     `db:"event_data"`
}

// TaskRowRepo runs the task join for one user and resolves every reference
// id in the result into its code.
type TaskRowRepo struct {
	db   DB
	refs CodeResolver
	opts aggregate.Options
}

func NewTaskRowRepo(db DB, refs CodeResolver, opts aggregate.Options) *TaskRowRepo {
	return &TaskRowRepo{db: db, refs: refs, opts: opts}
}

func (r *TaskRowRepo) FetchTaskRows(ctx context.Context, userID int64) ([]aggregate.Row, error) {
	query, args, err := r.buildQuery(ctx, userID)
	if err != nil {
		return nil, err
	}
	var records []taskRowRecord
	if err := pgxscan.Select(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("fetch task rows for user %d: %w", userID, err)
	}
	rows := make([]aggregate.Row, 0, len(records))
	for i := range records {
		row, err := r.toRow(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	logger.FromContext(ctx).Debug("Fetched task rows", "user_id", userID, "rows", len(rows))
	return rows, nil
}

func (r *TaskRowRepo) buildQuery(ctx context.Context, userID int64) (string, []any, error) {
	routeParam, err := r.refs.Lookup(ctx, r.opts.RouteParamCode)
	if err != nil {
		return "", nil, fmt.Errorf("resolve route param code: %w", err)
	}
	stationParam, err := r.refs.Lookup(ctx, r.opts.StationParamCode)
	if err != nil {
		return "", nil, fmt.Errorf("resolve station param code: %w", err)
	}
	query, args, err := squirrel.Select(taskRowColumns...).
		From("app_task t").
		LeftJoin("app_param p ON p.app_param_id_rec = t.id_app_task AND p.app_param_del = 0").
		LeftJoin("marsh_trs mt ON CAST(mt.id_marsh_trs AS TEXT) = p.app_param_str AND p.app_param_tip = ?", routeParam).
		LeftJoin("trs truck ON truck.id_trs = mt.marsh_trs_id_trs").
		LeftJoin("trs trailer ON trailer.id_trs = mt.marsh_trs_id_pric").
		LeftJoin("marsh m ON m.id_marsh = mt.marsh_trs_id_marsh").
		LeftJoin("mst s ON CAST(s.id_mst AS TEXT) = p.app_param_str AND p.app_param_tip = ?", stationParam).
		LeftJoin("app_event e ON e.app_event_id_rec = t.id_app_task AND e.app_event_del = 0").
		Where("t.app_task_del = 0").
		Where(squirrel.Eq{"t.app_task_id_sotr": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build task rows query: %w", err)
	}
	return query, args, nil
}

func (r *TaskRowRepo) toRow(ctx context.Context, rec *taskRowRecord) (aggregate.Row, error) {
	row := aggregate.Row{
		ID:                   rec.ID,
		OwnerID:              rec.OwnerID,
		ParentID:             rec.ParentID,
		PlannedStart:         rec.PlannedStart,
		PlannedEnd:           rec.PlannedEnd,
		ActualStart:          rec.ActualStart,
		ActualEnd:            rec.ActualEnd,
		RouteID:              rec.RouteID,
		RouteTemperature:     rec.RouteTemperature,
		RouteName:            rec.RouteName,
		TruckID:              rec.TruckID,
		TruckCertification:   rec.TruckCertification,
		TrailerID:            rec.TrailerID,
		TrailerCertification: rec.TrailerCertification,
		StationID:            rec.StationID,
		StationName:          rec.StationName,
		StationLat:           rec.StationLat,
		StationLon:           rec.StationLon,
		EventID:              rec.EventID,
		EventText:            rec.EventText,
		EventOwnerID:         rec.EventOwnerID,
		EventAt:              rec.EventAt,
	}
	if rec.Text != nil {
		row.Text = *rec.Text
	}
	var err error
	if row.StatusCode, err = r.code(ctx, rec.StatusID); err != nil {
		return row, err
	}
	if row.TypeCode, err = r.code(ctx, rec.TypeID); err != nil {
		return row, err
	}
	if rec.ParamTypeID != nil {
		code, err := r.code(ctx, rec.ParamTypeID)
		if err != nil {
			return row, err
		}
		row.ParamTypeCode = &code
	}
	if rec.EventID != nil {
		kind, err := r.code(ctx, rec.EventKindID)
		if err != nil {
			return row, err
		}
		row.EventKindCode = &kind
		if row.EventPayload, err = r.decodePayload(ctx, rec.EventData); err != nil {
			return row, err
		}
	}
	return row, nil
}

// code resolves a nullable reference id. Missing and unknown ids yield an
// empty code; the aggregator decides whether that is fatal.
func (r *TaskRowRepo) code(ctx context.Context, id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	code, err := r.refs.Resolve(ctx, *id)
	if errors.Is(err, reference.ErrUnknown) {
		return "", nil
	}
	return code, err
}

// decodePayload flattens event data stored as an object or a list of
// objects. Numeric keys are reference ids and are replaced by their codes.
func (r *TaskRowRepo) decodePayload(ctx context.Context, data []byte) (map[string]string, error) {
	payload := make(map[string]string)
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return payload, nil
	}
	var walkErr error
	collect := func(obj gjson.Result) {
		obj.ForEach(func(key, value gjson.Result) bool {
			name, err := r.payloadKey(ctx, key.String())
			if err != nil {
				walkErr = err
				return false
			}
			payload[name] = value.String()
			return true
		})
	}
	doc := gjson.ParseBytes(data)
	switch {
	case doc.IsArray():
		for _, item := range doc.Array() {
			if item.IsObject() {
				collect(item)
			}
		}
	case doc.IsObject():
		collect(doc)
	}
	return payload, walkErr
}

func (r *TaskRowRepo) payloadKey(ctx context.Context, key string) (string, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return key, nil
	}
	code, err := r.refs.Resolve(ctx, id)
	if errors.Is(err, reference.ErrUnknown) {
		return key, nil
	}
	return code, err
}
