// Package aggregate rebuilds the nested task graph from the flat rows of the
// task join. The build runs in two passes: rows are first grouped by entity
// id, then every task, subtask and event is constructed exactly once from its
// group.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mpdriver/mpdriver/engine/task"
)

// ErrLookupFailure marks rows whose reference codes could not be resolved.
// It signals a data-integrity fault, not a user error.
var ErrLookupFailure = errors.New("reference lookup failure")

const (
	DefaultStationParamCode = "ID_MST"
	DefaultRouteParamCode   = "ID_MARSH_TRS"
)

// Options selects which param rows carry the station and route groups. An
// empty code accepts any row with a non-null group.
type Options struct {
	StationParamCode string
	RouteParamCode   string
}

func DefaultOptions() Options {
	return Options{
		StationParamCode: DefaultStationParamCode,
		RouteParamCode:   DefaultRouteParamCode,
	}
}

type entityRows struct {
	head *Row
	rows []*Row
}

type grouped struct {
	entities map[int64]*entityRows
	events   map[int64]map[int64]task.Event
}

// Aggregate builds the ordered task list for one user from the joined rows.
// Orphan subtasks are dropped. The result does not depend on row order.
func Aggregate(rows []Row, opts Options) ([]task.Task, error) {
	g := group(rows)
	tasks := make([]task.Task, 0)
	subtasks := make(map[int64][]task.Subtask)
	for _, er := range g.entities {
		if er.head.IsTopLevel() {
			continue
		}
		parent, ok := g.entities[er.head.ParentID]
		if !ok || !parent.head.IsTopLevel() {
			continue
		}
		st, err := buildSubtask(er, g, opts)
		if err != nil {
			return nil, err
		}
		subtasks[st.ParentID] = append(subtasks[st.ParentID], st)
	}
	for _, er := range g.entities {
		if !er.head.IsTopLevel() {
			continue
		}
		t, err := buildTask(er, g, opts)
		if err != nil {
			return nil, err
		}
		t.Subtasks = subtasks[t.ID]
		if t.Subtasks == nil {
			t.Subtasks = []task.Subtask{}
		}
		sortSubtasks(t.Subtasks)
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return before(tasks[i].PlannedStart, tasks[i].ID, tasks[j].PlannedStart, tasks[j].ID)
	})
	return tasks, nil
}

func group(rows []Row) grouped {
	g := grouped{
		entities: make(map[int64]*entityRows),
		events:   make(map[int64]map[int64]task.Event),
	}
	for i := range rows {
		r := &rows[i]
		er, ok := g.entities[r.ID]
		if !ok {
			er = &entityRows{head: r}
			g.entities[r.ID] = er
		}
		er.rows = append(er.rows, r)
		if r.hasEvent() {
			addEvent(g.events, r)
		}
	}
	return g
}

func addEvent(events map[int64]map[int64]task.Event, r *Row) {
	owner := r.ID
	if r.EventOwnerID != nil {
		owner = *r.EventOwnerID
	}
	byID, ok := events[owner]
	if !ok {
		byID = make(map[int64]task.Event)
		events[owner] = byID
	}
	if _, seen := byID[*r.EventID]; seen {
		return
	}
	ev := task.Event{
		ID:      *r.EventID,
		Type:    deref(r.EventKindCode),
		Text:    deref(r.EventText),
		OwnerID: owner,
		Payload: r.EventPayload,
	}
	if r.EventAt != nil {
		ev.At = *r.EventAt
	}
	if ev.Payload == nil {
		ev.Payload = map[string]string{}
	}
	byID[ev.ID] = ev
}

func buildTask(er *entityRows, g grouped, opts Options) (task.Task, error) {
	h := er.head
	status, err := parseStatus(h)
	if err != nil {
		return task.Task{}, err
	}
	return task.Task{
		ID:           h.ID,
		OwnerID:      h.OwnerID,
		PlannedStart: h.PlannedStart,
		PlannedEnd:   h.PlannedEnd,
		ActualStart:  h.ActualStart,
		ActualEnd:    h.ActualEnd,
		Status:       status,
		Type:         h.TypeCode,
		Text:         h.Text,
		Events:       eventsOf(g, h.ID),
		Route:        routeOf(er.rows, opts.RouteParamCode),
	}, nil
}

func buildSubtask(er *entityRows, g grouped, opts Options) (task.Subtask, error) {
	h := er.head
	status, err := parseStatus(h)
	if err != nil {
		return task.Subtask{}, err
	}
	return task.Subtask{
		ID:           h.ID,
		ParentID:     h.ParentID,
		PlannedStart: h.PlannedStart,
		PlannedEnd:   h.PlannedEnd,
		ActualStart:  h.ActualStart,
		ActualEnd:    h.ActualEnd,
		Status:       status,
		Type:         h.TypeCode,
		Text:         h.Text,
		Station:      stationOf(er.rows, opts.StationParamCode),
		Events:       eventsOf(g, h.ID),
	}, nil
}

func parseStatus(r *Row) (task.Status, error) {
	status, err := task.ParseStatus(r.StatusCode)
	if err != nil {
		return "", fmt.Errorf("%w: entity %d: %w", ErrLookupFailure, r.ID, err)
	}
	return status, nil
}

func eventsOf(g grouped, owner int64) []task.Event {
	byID := g.events[owner]
	out := make([]task.Event, 0, len(byID))
	for _, ev := range byID {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[i].At, out[i].ID, out[j].At, out[j].ID)
	})
	return out
}

// stationOf picks the station with the lowest id among the tagged rows.
func stationOf(rows []*Row, code string) *task.Station {
	var pick *Row
	for _, r := range rows {
		if !r.hasStation() || !r.taggedWith(code) {
			continue
		}
		if pick == nil || *r.StationID < *pick.StationID {
			pick = r
		}
	}
	if pick == nil {
		return nil
	}
	st := &task.Station{ID: *pick.StationID, Name: deref(pick.StationName)}
	if pick.StationLat != nil {
		st.Location.Lat = *pick.StationLat
	}
	if pick.StationLon != nil {
		st.Location.Lon = *pick.StationLon
	}
	return st
}

// routeOf picks the route with the lowest id among the tagged rows.
func routeOf(rows []*Row, code string) *task.Route {
	var pick *Row
	for _, r := range rows {
		if !r.hasRoute() || !r.taggedWith(code) {
			continue
		}
		if pick == nil || *r.RouteID < *pick.RouteID {
			pick = r
		}
	}
	if pick == nil {
		return nil
	}
	route := &task.Route{
		ID:      *pick.RouteID,
		Name:    deref(pick.RouteName),
		Truck:   vehicle(pick.TruckID, pick.TruckCertification),
		Trailer: vehicle(pick.TrailerID, pick.TrailerCertification),
	}
	if pick.RouteTemperature != nil {
		route.Temperature = task.TemperatureFromFlag(*pick.RouteTemperature)
	}
	return route
}

func vehicle(id *int64, certification *string) *task.Vehicle {
	if id == nil || *id == 0 {
		return nil
	}
	return &task.Vehicle{ID: *id, Certification: certification}
}

func sortSubtasks(subtasks []task.Subtask) {
	sort.Slice(subtasks, func(i, j int) bool {
		return before(subtasks[i].PlannedStart, subtasks[i].ID, subtasks[j].PlannedStart, subtasks[j].ID)
	})
}

// before orders by timestamp, then by id.
func before(at1 time.Time, id1 int64, at2 time.Time, id2 int64) bool {
	if !at1.Equal(at2) {
		return at1.Before(at2)
	}
	return id1 < id2
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
