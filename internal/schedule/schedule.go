// Package schedule содержит модель недельного расписания магазина и вычисление доступности.
package schedule

import (
	"fmt"
	"time"
)

// Weekday задаёт канонический день недели, используемый во всём сервисе.
// Локализованные названия дней существуют только на уровне представления.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays перечисляет дни недели в порядке обхода с понедельника.
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf преобразует день недели стандартной библиотеки в канонический.
func WeekdayOf(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Availability описывает состояние магазина в конкретный момент времени.
type Availability string

const (
	AvailabilityOpen        Availability = "OPEN"
	AvailabilityOpeningSoon Availability = "OPENING_SOON"
	AvailabilityClosed      Availability = "CLOSED"
)

// PrewarnMinutes задаёт окно предупреждения «скоро откроется» до начала слота.
const PrewarnMinutes = 30

const minutesPerDay = 24 * 60

// TimeRange описывает один интервал работы в минутах от начала суток.
// Интервал полуоткрытый: [OpensAt, ClosesAt). Переход через полночь не поддерживается.
type TimeRange struct {
	OpensAt  int
	ClosesAt int
}

// Contains сообщает, попадает ли минута суток внутрь интервала.
func (r TimeRange) Contains(minute int) bool {
	return minute >= r.OpensAt && minute < r.ClosesAt
}

// DaySchedule описывает режим работы магазина в один день: до двух слотов либо выходной.
type DaySchedule struct {
	Closed bool
	Slots  []TimeRange
}

// Week хранит расписание на все семь дней недели.
type Week map[Weekday]DaySchedule

// Error описывает некорректное расписание с указанием проблемного дня.
type Error struct {
	Day    Weekday
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid schedule for %s: %s", e.Day, e.Reason)
}

// maxSlotsPerDay ограничивает число интервалов в день (утро и вторая половина дня).
const maxSlotsPerDay = 2

// NewWeek валидирует сырое недельное расписание и возвращает его каноническую форму.
// Слоты должны быть заданы по возрастанию и не пересекаться; вызывающая сторона
// при ошибке подставляет ClosedWeek вместо аварийного завершения.
func NewWeek(days map[Weekday]DaySchedule) (Week, error) {
	week := make(Week, len(Weekdays))

	for _, day := range Weekdays {
		ds, ok := days[day]
		if !ok {
			week[day] = DaySchedule{Closed: true}
			continue
		}

		if ds.Closed {
			if len(ds.Slots) > 0 {
				return nil, &Error{Day: day, Reason: "closed day must not have slots"}
			}
			week[day] = DaySchedule{Closed: true}
			continue
		}

		if len(ds.Slots) > maxSlotsPerDay {
			return nil, &Error{Day: day, Reason: fmt.Sprintf("at most %d slots allowed", maxSlotsPerDay)}
		}

		prevClose := 0
		for _, slot := range ds.Slots {
			if slot.OpensAt < 0 || slot.OpensAt >= minutesPerDay {
				return nil, &Error{Day: day, Reason: fmt.Sprintf("opening minute %d out of range", slot.OpensAt)}
			}
			if slot.ClosesAt <= slot.OpensAt || slot.ClosesAt > minutesPerDay {
				return nil, &Error{Day: day, Reason: fmt.Sprintf("closing minute %d must be after opening %d", slot.ClosesAt, slot.OpensAt)}
			}
			if slot.OpensAt < prevClose {
				return nil, &Error{Day: day, Reason: "slots must be increasing and non-overlapping"}
			}
			prevClose = slot.ClosesAt
		}

		week[day] = DaySchedule{Slots: append([]TimeRange(nil), ds.Slots...)}
	}

	return week, nil
}

// ClosedWeek возвращает расписание, закрытое во все дни недели.
// Используется как безопасное значение по умолчанию для повреждённых данных.
func ClosedWeek() Week {
	week := make(Week, len(Weekdays))
	for _, day := range Weekdays {
		week[day] = DaySchedule{Closed: true}
	}
	return week
}

// Resolve вычисляет доступность магазина по расписанию в момент времени now.
// Слоты проверяются в порядке хранения, без сортировки: для совместимости
// с исходными данными более поздний слот может дать OPENING_SOON,
// даже если между слотами идёт перерыв.
func Resolve(week Week, now time.Time) Availability {
	today, ok := week[WeekdayOf(now.Weekday())]
	if !ok || today.Closed || len(today.Slots) == 0 {
		return AvailabilityClosed
	}

	minute := now.Hour()*60 + now.Minute()

	for _, slot := range today.Slots {
		if slot.Contains(minute) {
			return AvailabilityOpen
		}
		if minute < slot.OpensAt && slot.OpensAt-minute <= PrewarnMinutes {
			return AvailabilityOpeningSoon
		}
	}

	return AvailabilityClosed
}
