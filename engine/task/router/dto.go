package tkrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/chain"
)

// Timestamp accepts RFC 3339 and zone-less ISO 8601 date-times. Zone-less
// values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}

// StatusItem is one proposed transition.
type StatusItem struct {
	TaskID    int64     `json:"task_id"    binding:"required"`
	Dt        Timestamp `json:"dt"`
	Status    string    `json:"status"     binding:"required"`
	ErrorText *string   `json:"error_text" binding:"omitempty,max=1024"`
}

// UpdateStatusesRequest is the POST /tasks body.
type UpdateStatusesRequest struct {
	Data []StatusItem `json:"data" binding:"dive"`
}

func (r *UpdateStatusesRequest) transitions() ([]chain.Transition, error) {
	out := make([]chain.Transition, 0, len(r.Data))
	for i := range r.Data {
		item := &r.Data[i]
		if item.Dt.IsZero() {
			return nil, fmt.Errorf("data[%d]: dt is required", i)
		}
		status, err := task.ParseStatus(item.Status)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		tr := chain.Transition{EntityID: item.TaskID, Status: status, At: item.Dt.Time}
		if item.ErrorText != nil {
			tr.Reason = *item.ErrorText
		}
		out = append(out, tr)
	}
	return out, nil
}

// CountResponse is returned by the count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}
