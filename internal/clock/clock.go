// Package clock converte o instante atual para o fuso de referência usando
// aritmética explícita de offset UTC, sem depender do fuso do processo.
package clock

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var weekdayLabels = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Reference instante resolvido no fuso de referência
type Reference struct {
	// Instant é o "agora" truncado no minuto, em UTC. É o scheduledTime das ocorrências.
	Instant time.Time
	DateKey string
	HHMM    string
	Weekday string
}

type Resolver struct {
	offset time.Duration
}

func NewResolver(offsetMinutes int) Resolver {
	return Resolver{offset: time.Duration(offsetMinutes) * time.Minute}
}

// Resolve devolve (dateKey, hh:mm, dia da semana) no fuso de referência
func (r Resolver) Resolve(now time.Time) Reference {
	instant := now.UTC().Truncate(time.Minute)
	wall := instant.Add(r.offset)

	return Reference{
		Instant: instant,
		DateKey: wall.Format(DateLayout),
		HHMM:    wall.Format(TimeLayout),
		Weekday: weekdayLabels[wall.Weekday()],
	}
}

// Wall formata um instante como relógio de parede do fuso de referência
func (r Resolver) Wall(t time.Time, layout string) string {
	return t.UTC().Add(r.offset).Format(layout)
}

// ParseHHMM valida um horário "HH:MM" de 24h e devolve a forma canônica
func ParseHHMM(s string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Format(TimeLayout), nil
}

// ParseDate valida uma data "2006-01-02"
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t.Format(DateLayout), nil
}

// NormalizeWeekday aceita "monday", "Mon", "MON"... e devolve o rótulo canônico "Mon"
func NormalizeWeekday(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) >= 3 {
		for i, label := range weekdayLabels {
			full := strings.ToLower(time.Weekday(i).String())
			if v == strings.ToLower(label) || v == full {
				return label, nil
			}
		}
	}
	return "", fmt.Errorf("invalid weekday %q", s)
}
