package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpdriver/mpdriver/engine/reference"
	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type mapResolver struct {
	codes map[int64]string
}

func newMapResolver() *mapResolver {
	return &mapResolver{codes: map[int64]string{
		8668: "ID_MST",
		8670: "ID_MARSH_TRS",
		8678: "Change",
		8794: "APP_STATUS",
		8679: "NotDefined",
		8680: "InProgress",
		8681: "Completed",
		8682: "Cancelled",
		9001: "MovMarsh",
		9002: "Mst_In",
	}}
}

func (m *mapResolver) Resolve(_ context.Context, id int64) (string, error) {
	if code, ok := m.codes[id]; ok {
		return code, nil
	}
	return "", reference.ErrUnknown
}

func (m *mapResolver) Lookup(_ context.Context, code string) (int64, error) {
	for id, c := range m.codes {
		if c == code {
			return id, nil
		}
	}
	return 0, reference.ErrUnknown
}

func ptr[T any](v T) *T { return &v }

var rowColumns = []string{
	"id", "owner_id", "parent_id", "planned_start", "planned_end", "actual_start", "actual_end",
	"status_id", "type_id", "text", "param_type_id",
	"route_id", "route_temperature", "route_name",
	"truck_id", "truck_certification", "trailer_id", "trailer_certification",
	"station_id", "station_name", "station_lat", "station_lon",
	"event_id", "event_kind_id", "event_text", "event_owner_id", "event_at", "event_data",
}

type recordValues struct {
	id, parent int64
	start      time.Time
	status     int64
	param      *int64
	routeID    *int64
	truckID    *int64
	stationID  *int64
	eventID    *int64
	eventData  []byte
}

func (v recordValues) values() []any {
	var (
		nilTime   *time.Time
		nilInt64  *int64
		nilInt    *int
		nilString *string
		nilFloat  *float64
	)
	out := []any{
		v.id, int64(7), v.parent, v.start, v.start.Add(time.Hour), nilTime, nilTime,
		ptr(v.status), ptr(int64(9001)), ptr("note"), v.param,
		nilInt64, nilInt, nilString,
		nilInt64, nilString, nilInt64, nilString,
		nilInt64, nilString, nilFloat, nilFloat,
		nilInt64, nilInt64, nilString, nilInt64, nilTime, []byte(nil),
	}
	if v.routeID != nil {
		out[11], out[12], out[13] = v.routeID, ptr(1), ptr("north")
		out[14], out[15] = v.truckID, ptr("A123BC")
		out[16], out[17] = ptr(int64(0)), nilString
	}
	if v.stationID != nil {
		out[18], out[19], out[20], out[21] = v.stationID, ptr("depot"), ptr(55.7), ptr(37.6)
	}
	if v.eventID != nil {
		out[22], out[23], out[24], out[25] = v.eventID, ptr(int64(8678)), ptr("New task status: InProgress"), ptr(v.id)
		out[26], out[27] = ptr(v.start.Add(time.Minute)), v.eventData
	}
	return out
}

func testCtx() context.Context {
	return logger.ContextWithLogger(context.Background(), logger.NewForTests())
}

func TestTaskRowRepo_FetchTaskRows(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Should resolve codes and decode event payloads", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewTaskRowRepo(mockPool, newMapResolver(), aggregate.DefaultOptions())

		rows := mockPool.NewRows(rowColumns).
			AddRow(recordValues{
				id: 1, parent: 1, start: start, status: 8680,
				param: ptr(int64(8670)), routeID: ptr(int64(100)), truckID: ptr(int64(11)),
				eventID: ptr(int64(500)), eventData: []byte(`[{"8794":"8680","error":"none"}]`),
			}.values()...).
			AddRow(recordValues{
				id: 2, parent: 1, start: start, status: 8679,
				param: ptr(int64(8668)), stationID: ptr(int64(900)),
			}.values()...)
		mockPool.ExpectQuery("SELECT (.+) FROM app_task t LEFT JOIN app_param p").
			WithArgs(int64(8670), int64(8668), int64(7)).
			WillReturnRows(rows)

		got, err := repo.FetchTaskRows(testCtx(), 7)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "InProgress", got[0].StatusCode)
		assert.Equal(t, "MovMarsh", got[0].TypeCode)
		assert.Equal(t, "note", got[0].Text)
		require.NotNil(t, got[0].ParamTypeCode)
		assert.Equal(t, "ID_MARSH_TRS", *got[0].ParamTypeCode)
		require.NotNil(t, got[0].EventKindCode)
		assert.Equal(t, "Change", *got[0].EventKindCode)
		assert.Equal(t, map[string]string{"APP_STATUS": "8680", "error": "none"}, got[0].EventPayload)
		assert.Equal(t, "ID_MST", *got[1].ParamTypeCode)
		assert.Equal(t, int64(900), *got[1].StationID)
		assert.NoError(t, mockPool.ExpectationsWereMet())

		tasks, err := aggregate.Aggregate(got, aggregate.DefaultOptions())
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.NotNil(t, tasks[0].Route)
		assert.Nil(t, tasks[0].Route.Trailer)
		assert.NotNil(t, tasks[0].Route.Truck)
		require.Len(t, tasks[0].Subtasks, 1)
		assert.Equal(t, "depot", tasks[0].Subtasks[0].Station.Name)
	})

	t.Run("Should leave unknown status ids for the aggregator to reject", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewTaskRowRepo(mockPool, newMapResolver(), aggregate.DefaultOptions())
		rows := mockPool.NewRows(rowColumns).
			AddRow(recordValues{id: 1, parent: 1, start: start, status: 1}.values()...)
		mockPool.ExpectQuery("SELECT (.+) FROM app_task t").
			WithArgs(int64(8670), int64(8668), int64(7)).
			WillReturnRows(rows)

		got, err := repo.FetchTaskRows(testCtx(), 7)
		require.NoError(t, err)
		assert.Empty(t, got[0].StatusCode)
		_, err = aggregate.Aggregate(got, aggregate.DefaultOptions())
		assert.ErrorIs(t, err, aggregate.ErrLookupFailure)
	})

	t.Run("Should propagate query errors", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewTaskRowRepo(mockPool, newMapResolver(), aggregate.DefaultOptions())
		mockPool.ExpectQuery("SELECT (.+) FROM app_task t").
			WithArgs(int64(8670), int64(8668), int64(7)).
			WillReturnError(errors.New("connection reset"))

		_, err = repo.FetchTaskRows(testCtx(), 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("Should fail when a param code is missing from the reference table", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewTaskRowRepo(mockPool, newMapResolver(), aggregate.Options{
			StationParamCode: "ID_MST",
			RouteParamCode:   "UNKNOWN",
		})
		_, err = repo.FetchTaskRows(testCtx(), 7)
		assert.ErrorIs(t, err, reference.ErrUnknown)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTaskRowRepo_decodePayload(t *testing.T) {
	repo := NewTaskRowRepo(nil, newMapResolver(), aggregate.DefaultOptions())

	t.Run("Should accept a single object", func(t *testing.T) {
		got, err := repo.decodePayload(testCtx(), []byte(`{"8794":"8682","error":"flat tyre"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"APP_STATUS": "8682", "error": "flat tyre"}, got)
	})

	t.Run("Should keep unknown numeric keys as they are", func(t *testing.T) {
		got, err := repo.decodePayload(testCtx(), []byte(`[{"123":5}]`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"123": "5"}, got)
	})

	t.Run("Should return an empty payload for invalid JSON", func(t *testing.T) {
		got, err := repo.decodePayload(testCtx(), []byte(`{not json`))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestEventRepo_RecordStatusEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	codes := EventCodes{StatusEventKind: "Change", StatusParamCode: "APP_STATUS"}

	t.Run("Should insert a task status event", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewEventRepo(mockPool, newMapResolver(), codes)
		mockPool.ExpectExec("INSERT INTO app_event").
			WithArgs(int64(7), int64(1), at, `[{"8794":"8680"}]`, "New task status: InProgress", int64(8678), 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.RecordStatusEvent(testCtx(), &task.StatusChange{
			UserID: 7, EntityID: 1, Kind: task.KindTask, At: at, Status: task.StatusInProgress,
		})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should include the reason for cancelled subtasks", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewEventRepo(mockPool, newMapResolver(), codes)
		mockPool.ExpectExec("INSERT INTO app_event").
			WithArgs(
				int64(7), int64(11), at,
				`[{"8794":"8682","error":"road closed"}]`,
				"New subtask status: Cancelled", int64(8678), 0,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.RecordStatusEvent(testCtx(), &task.StatusChange{
			UserID: 7, EntityID: 11, Kind: task.KindSubtask, At: at,
			Status: task.StatusCancelled, Reason: "road closed",
		})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should wrap insert failures", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewEventRepo(mockPool, newMapResolver(), codes)
		mockPool.ExpectExec("INSERT INTO app_event").
			WillReturnError(fmt.Errorf("disk full"))

		err = repo.RecordStatusEvent(testCtx(), &task.StatusChange{
			UserID: 7, EntityID: 12, Kind: task.KindSubtask, At: at, Status: task.StatusCompleted,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entity 12")
	})
}

func TestReferenceRepo(t *testing.T) {
	t.Run("Should load a code by id", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewReferenceRepo(mockPool)
		mockPool.ExpectQuery("SELECT lst_name_sh FROM lst WHERE id_lst = \\$1 AND lst_del = 0").
			WithArgs(int64(8680)).
			WillReturnRows(mockPool.NewRows([]string{"lst_name_sh"}).AddRow("InProgress"))

		code, err := repo.LoadCode(testCtx(), 8680)
		require.NoError(t, err)
		assert.Equal(t, "InProgress", code)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should load an id by code", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewReferenceRepo(mockPool)
		mockPool.ExpectQuery("SELECT id_lst FROM lst WHERE lst_name_sh = \\$1 AND lst_del = 0 ORDER BY id_lst LIMIT 1").
			WithArgs("Cancelled").
			WillReturnRows(mockPool.NewRows([]string{"id_lst"}).AddRow(int64(8682)))

		id, err := repo.LoadID(testCtx(), "Cancelled")
		require.NoError(t, err)
		assert.Equal(t, int64(8682), id)
	})

	t.Run("Should map missing rows to ErrUnknown", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewReferenceRepo(mockPool)
		mockPool.ExpectQuery("SELECT lst_name_sh FROM lst").
			WithArgs(int64(1)).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.LoadCode(testCtx(), 1)
		assert.ErrorIs(t, err, reference.ErrUnknown)
	})
}

func TestConfig_dsn(t *testing.T) {
	t.Run("Should prefer the connection string", func(t *testing.T) {
		assert.Equal(t, "postgres://x", dsn(&Config{ConnString: "postgres://x", Host: "ignored"}))
	})

	t.Run("Should synthesize a DSN from parts", func(t *testing.T) {
		got := dsn(&Config{Host: "db", Port: "5432", User: "app", Password: "p@ss", DBName: "mp"})
		assert.Equal(t, "postgres://app:p%40ss@db:5432/mp?sslmode=disable", got)
	})
}

func TestDeriveConnectionBounds(t *testing.T) {
	t.Run("Should default and clamp pool sizes", func(t *testing.T) {
		maxConns, minConns := deriveConnectionBounds(&Config{})
		assert.Equal(t, int32(defaultMaxConns), maxConns)
		assert.Equal(t, int32(0), minConns)

		maxConns, minConns = deriveConnectionBounds(&Config{MaxOpenConns: 5, MaxIdleConns: 9})
		assert.Equal(t, int32(5), maxConns)
		assert.Equal(t, int32(5), minConns)
	})
}
