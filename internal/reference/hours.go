package reference

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultWindow — будни с 9:00 до 17:59.
const DefaultWindow = "* 9-17 * * 1-5"

// cronParser — пятипольные выражения без секунд.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// BusinessHours — рабочее окно получателя запросов.
//
// Окно задаётся cron-выражением: минута входит в окно, если cron
// сработал бы в её начале. Праздники исключаются целиком.
type BusinessHours struct {
	schedule cron.Schedule
	loc      *time.Location
	holidays map[string]struct{}
}

// NewBusinessHours разбирает окно. Пустой window — DefaultWindow,
// пустой timezone — UTC, holidays в формате YYYY-MM-DD.
func NewBusinessHours(window, timezone string, holidays []string) (*BusinessHours, error) {
	if window == "" {
		window = DefaultWindow
	}
	schedule, err := cronParser.Parse(window)
	if err != nil {
		return nil, fmt.Errorf("parse business hours %q: %w", window, err)
	}

	loc := time.UTC
	if timezone != "" {
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}

	days := make(map[string]struct{}, len(holidays))
	for _, day := range holidays {
		d, err := time.ParseInLocation(time.DateOnly, day, loc)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", day, err)
		}
		days[d.Format(time.DateOnly)] = struct{}{}
	}

	return &BusinessHours{schedule: schedule, loc: loc, holidays: days}, nil
}

// Contains — момент t попадает в рабочее окно.
func (b *BusinessHours) Contains(t time.Time) bool {
	local := t.In(b.loc)
	if _, holiday := b.holidays[local.Format(time.DateOnly)]; holiday {
		return false
	}

	minute := local.Truncate(time.Minute)
	return b.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

// Next возвращает начало ближайшей рабочей минуты не раньше t.
// Нужен для логов: когда стадия снова начнёт опрос.
func (b *BusinessHours) Next(t time.Time) time.Time {
	next := t.In(b.loc).Truncate(time.Minute).Add(-time.Second)
	// Праздники могут идти подряд; ограничиваемся годом поиска.
	limit := t.AddDate(1, 0, 0)
	for {
		next = b.schedule.Next(next)
		if next.IsZero() || next.After(limit) {
			return time.Time{}
		}
		if _, holiday := b.holidays[next.Format(time.DateOnly)]; !holiday {
			return next
		}
	}
}
