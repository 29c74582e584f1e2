package task

import (
	"encoding/json"
	"fmt"
)

// TemperatureClass is the cargo temperature regime of a Route. The numeric
// values match the stored route flag.
type TemperatureClass int

const (
	TemperatureUndefined TemperatureClass = 0
	TemperatureHot       TemperatureClass = 1
	TemperatureCold      TemperatureClass = 2
)

// TemperatureFromFlag maps the stored flag, treating unknown values as Undefined.
func TemperatureFromFlag(flag int) TemperatureClass {
	switch c := TemperatureClass(flag); c {
	case TemperatureHot, TemperatureCold:
		return c
	default:
		return TemperatureUndefined
	}
}

func (c TemperatureClass) String() string {
	switch c {
	case TemperatureHot:
		return "Hot"
	case TemperatureCold:
		return "Cold"
	default:
		return "Undefined"
	}
}

func (c TemperatureClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *TemperatureClass) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("temperature class: %w", err)
	}
	switch name {
	case "Hot":
		*c = TemperatureHot
	case "Cold":
		*c = TemperatureCold
	case "Undefined":
		*c = TemperatureUndefined
	default:
		return fmt.Errorf("temperature class: unknown value %q", name)
	}
	return nil
}
