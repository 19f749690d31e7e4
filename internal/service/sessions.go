package service

import "time"

// sessionWindow интервал времени внутри одного дня для кода сессии
type sessionWindow struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// sessionTimes статическая таблица кодов сессий. Фиксирована на уровне
// процесса и не редактируется в рантайме.
var sessionTimes = map[string]sessionWindow{
	"session1": {StartHour: 17, EndHour: 20},
	"session2": {StartHour: 20, EndHour: 22},
}

// slotStep шаг генерации кандидатов внутри сессии
const slotStep = 15 * time.Minute

// slotTimeFormat формат времени слота в сообщениях прогресса
const slotTimeFormat = "Jan 2, 2006 15:04"
