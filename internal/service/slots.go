package service

import (
	"iter"
	"sort"
	"time"

	"github.com/coachly/autoscheduler/internal/model"
)

// AvailabilitySlots разворачивает окно доступности в ленивую конечную
// последовательность кандидатов на встречу. Это чистая функция от окна и
// момента now: последовательность можно обходить заново, результат тот же.
//
// Кандидаты выдаются в неубывающем хронологическом порядке. Порядок значим:
// движок подбора фиксирует первый свободный слот, поэтому порядок генерации
// определяет, какой слот достанется клиенту.
func AvailabilitySlots(availability *model.Availability, now time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		// Истёкшее окно не даёт ни одного слота
		if availability.EndDate.Before(now) {
			return
		}

		loc := now.Location()

		// Начинаем с сегодняшнего дня или с начала окна, что позже
		start := availability.StartDate
		if start.Before(now) {
			start = now
		}
		start = start.In(loc)
		end := availability.EndDate.In(loc)

		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)

		for ; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
			codes := availability.SelectedDays[int(day.Weekday())]

			for _, window := range daySessions(codes) {
				slot := time.Date(day.Year(), day.Month(), day.Day(),
					window.StartHour, window.StartMinute, 0, 0, loc)
				sessionEnd := time.Date(day.Year(), day.Month(), day.Day(),
					window.EndHour, window.EndMinute, 0, 0, loc)

				for ; slot.Before(sessionEnd); slot = slot.Add(slotStep) {
					// Уже прошедшие моменты пропускаем
					if !slot.After(now) {
						continue
					}
					if !yield(slot) {
						return
					}
				}
			}
		}
	}
}

// daySessions резолвит коды сессий дня в окна времени.
// Неизвестные коды молча пропускаются и не дают слотов.
// Окна сортируются по началу, чтобы ленивая выдача оставалась хронологической.
func daySessions(codes []string) []sessionWindow {
	windows := make([]sessionWindow, 0, len(codes))
	for _, code := range codes {
		if window, ok := sessionTimes[code]; ok {
			windows = append(windows, window)
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].StartHour != windows[j].StartHour {
			return windows[i].StartHour < windows[j].StartHour
		}
		return windows[i].StartMinute < windows[j].StartMinute
	})

	return windows
}
