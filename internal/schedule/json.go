package schedule

import (
	"encoding/json"
	"fmt"

	"github.com/shopgreen/shopgreen-system/internal/validation"
)

// slotJSON описывает интервал работы в хранимом формате с часами вида "HH:MM".
type slotJSON struct {
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

type dayJSON struct {
	Closed bool       `json:"closed,omitempty"`
	Slots  []slotJSON `json:"slots,omitempty"`
}

// MarshalJSON сериализует расписание в формат jsonb-колонки shops.hours.
func (w Week) MarshalJSON() ([]byte, error) {
	out := make(map[Weekday]dayJSON, len(Weekdays))
	for _, day := range Weekdays {
		ds, ok := w[day]
		if !ok {
			out[day] = dayJSON{Closed: true}
			continue
		}

		dj := dayJSON{Closed: ds.Closed}
		for _, slot := range ds.Slots {
			dj.Slots = append(dj.Slots, slotJSON{
				OpensAt:  validation.FormatClock(slot.OpensAt),
				ClosesAt: validation.FormatClock(slot.ClosesAt),
			})
		}
		out[day] = dj
	}
	return json.Marshal(out)
}

// UnmarshalJSON разбирает хранимое расписание и валидирует его через NewWeek.
func (w *Week) UnmarshalJSON(data []byte) error {
	var raw map[Weekday]dayJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal week: %w", err)
	}

	days := make(map[Weekday]DaySchedule, len(raw))
	for day, dj := range raw {
		ds := DaySchedule{Closed: dj.Closed}
		for _, sj := range dj.Slots {
			opens, err := validation.ParseClock(sj.OpensAt)
			if err != nil {
				return &Error{Day: day, Reason: err.Error()}
			}
			closes, err := validation.ParseClock(sj.ClosesAt)
			if err != nil {
				return &Error{Day: day, Reason: err.Error()}
			}
			ds.Slots = append(ds.Slots, TimeRange{OpensAt: opens, ClosesAt: closes})
		}
		days[day] = ds
	}

	week, err := NewWeek(days)
	if err != nil {
		return err
	}

	*w = week
	return nil
}
