package schedule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// mondayAt возвращает понедельник с указанным временем суток.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func splitDay() Week {
	week, err := NewWeek(map[Weekday]DaySchedule{
		Monday: {Slots: []TimeRange{
			{OpensAt: 9 * 60, ClosesAt: 13 * 60},
			{OpensAt: 15 * 60, ClosesAt: 19 * 60},
		}},
	})
	if err != nil {
		panic(err)
	}
	return week
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		week Week
		now  time.Time
		want Availability
	}{
		{
			name: "inside morning slot",
			week: splitDay(),
			now:  mondayAt(10, 30),
			want: AvailabilityOpen,
		},
		{
			name: "at opening minute",
			week: splitDay(),
			now:  mondayAt(9, 0),
			want: AvailabilityOpen,
		},
		{
			name: "closing minute is exclusive",
			week: splitDay(),
			now:  mondayAt(13, 0),
			want: AvailabilityClosed,
		},
		{
			name: "20 minutes before afternoon slot",
			week: splitDay(),
			now:  mondayAt(14, 40),
			want: AvailabilityOpeningSoon,
		},
		{
			name: "exactly 30 minutes before afternoon slot",
			week: splitDay(),
			now:  mondayAt(14, 30),
			want: AvailabilityOpeningSoon,
		},
		{
			name: "an hour before afternoon slot",
			week: splitDay(),
			now:  mondayAt(14, 0),
			want: AvailabilityClosed,
		},
		{
			name: "before first slot within prewarn",
			week: splitDay(),
			now:  mondayAt(8, 45),
			want: AvailabilityOpeningSoon,
		},
		{
			name: "after last slot",
			week: splitDay(),
			now:  mondayAt(20, 0),
			want: AvailabilityClosed,
		},
		{
			name: "other weekday is closed",
			week: splitDay(),
			now:  time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC),
			want: AvailabilityClosed,
		},
		{
			name: "closed week",
			week: ClosedWeek(),
			now:  mondayAt(10, 0),
			want: AvailabilityClosed,
		},
		{
			name: "open day without slots",
			week: Week{Monday: DaySchedule{}},
			now:  mondayAt(10, 0),
			want: AvailabilityClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.week, tt.now); got != tt.want {
				t.Fatalf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolve_SlotsCheckedInStoredOrder(t *testing.T) {
	// Слоты записаны в обратном порядке в обход NewWeek: Resolve
	// обходит их как есть и всё равно находит окно предупреждения.
	week := Week{
		Monday: DaySchedule{Slots: []TimeRange{
			{OpensAt: 15 * 60, ClosesAt: 19 * 60},
			{OpensAt: 9 * 60, ClosesAt: 13 * 60},
		}},
	}

	if got := Resolve(week, mondayAt(8, 45)); got != AvailabilityOpeningSoon {
		t.Fatalf("Resolve() = %s, want %s", got, AvailabilityOpeningSoon)
	}
	if got := Resolve(week, mondayAt(10, 0)); got != AvailabilityOpen {
		t.Fatalf("Resolve() = %s, want %s", got, AvailabilityOpen)
	}
}

func TestNewWeek_Validation(t *testing.T) {
	tests := []struct {
		name    string
		days    map[Weekday]DaySchedule
		wantDay Weekday
	}{
		{
			name: "closed day with slots",
			days: map[Weekday]DaySchedule{
				Tuesday: {Closed: true, Slots: []TimeRange{{OpensAt: 540, ClosesAt: 780}}},
			},
			wantDay: Tuesday,
		},
		{
			name: "too many slots",
			days: map[Weekday]DaySchedule{
				Friday: {Slots: []TimeRange{
					{OpensAt: 480, ClosesAt: 540},
					{OpensAt: 600, ClosesAt: 660},
					{OpensAt: 720, ClosesAt: 780},
				}},
			},
			wantDay: Friday,
		},
		{
			name: "closing before opening",
			days: map[Weekday]DaySchedule{
				Monday: {Slots: []TimeRange{{OpensAt: 780, ClosesAt: 540}}},
			},
			wantDay: Monday,
		},
		{
			name: "opening minute out of range",
			days: map[Weekday]DaySchedule{
				Monday: {Slots: []TimeRange{{OpensAt: -10, ClosesAt: 540}}},
			},
			wantDay: Monday,
		},
		{
			name: "overlapping slots",
			days: map[Weekday]DaySchedule{
				Saturday: {Slots: []TimeRange{
					{OpensAt: 540, ClosesAt: 900},
					{OpensAt: 840, ClosesAt: 1140},
				}},
			},
			wantDay: Saturday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeek(tt.days)
			if err == nil {
				t.Fatalf("expected validation error")
			}

			var schedErr *Error
			if !errors.As(err, &schedErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if schedErr.Day != tt.wantDay {
				t.Fatalf("error day = %s, want %s", schedErr.Day, tt.wantDay)
			}
		})
	}
}

func TestNewWeek_FillsMissingDaysAsClosed(t *testing.T) {
	week, err := NewWeek(map[Weekday]DaySchedule{
		Monday: {Slots: []TimeRange{{OpensAt: 540, ClosesAt: 780}}},
	})
	if err != nil {
		t.Fatalf("NewWeek error: %v", err)
	}

	if len(week) != 7 {
		t.Fatalf("week has %d days, want 7", len(week))
	}
	for _, day := range Weekdays[1:] {
		if !week[day].Closed {
			t.Fatalf("day %s should be closed", day)
		}
	}
}

func TestWeekJSONRoundTrip(t *testing.T) {
	week := splitDay()

	data, err := json.Marshal(week)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Week
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	monday := decoded[Monday]
	if len(monday.Slots) != 2 {
		t.Fatalf("monday has %d slots, want 2", len(monday.Slots))
	}
	if monday.Slots[0].OpensAt != 540 || monday.Slots[1].ClosesAt != 1140 {
		t.Fatalf("unexpected slots: %+v", monday.Slots)
	}
	if !decoded[Sunday].Closed {
		t.Fatalf("sunday should round-trip as closed")
	}
}

func TestWeekUnmarshal_RejectsBadClock(t *testing.T) {
	raw := `{"monday":{"slots":[{"opens_at":"9am","closes_at":"13:00"}]}}`

	var week Week
	err := json.Unmarshal([]byte(raw), &week)
	if err == nil {
		t.Fatalf("expected error for malformed clock value")
	}

	var schedErr *Error
	if !errors.As(err, &schedErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
}

func TestWeekUnmarshal_RejectsInvalidSchedule(t *testing.T) {
	raw := `{"monday":{"closed":true,"slots":[{"opens_at":"09:00","closes_at":"13:00"}]}}`

	var week Week
	if err := json.Unmarshal([]byte(raw), &week); err == nil {
		t.Fatalf("expected error for closed day with slots")
	}
}
