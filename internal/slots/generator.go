package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFirstSeating = "17:00"
	DefaultLastSeating  = "21:00"
	DefaultSlotMinutes  = 60
	DefaultMaxParty     = 6
	DefaultPartySize    = 2
)

// Slot is one offered seating time.
type Slot struct {
	Start     time.Time
	Available bool
}

// SlotInfo is the JSON form of a slot.
type SlotInfo struct {
	Time      string `json:"time"` // "19:00"
	Available bool   `json:"available"`
}

// Schedule describes which seatings a shop offers on a day.
type Schedule struct {
	FirstSeating string // "17:00"
	LastSeating  string // "21:00", inclusive
	SlotMinutes  int
	MaxPartySize int
}

// WithDefaults fills unset fields.
func (s Schedule) WithDefaults() Schedule {
	if s.FirstSeating == "" {
		s.FirstSeating = DefaultFirstSeating
	}
	if s.LastSeating == "" {
		s.LastSeating = DefaultLastSeating
	}
	if s.SlotMinutes <= 0 {
		s.SlotMinutes = DefaultSlotMinutes
	}
	if s.MaxPartySize <= 0 {
		s.MaxPartySize = DefaultMaxParty
	}
	return s
}

// Generator produces the seatings a shop offers. Seatings are not checked
// against existing reservations; only elapsed seatings are marked unavailable.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// GenerateSlots lists seatings on date from the first to the last seating inclusive.
func (g *Generator) GenerateSlots(date time.Time, schedule Schedule) ([]Slot, error) {
	schedule = schedule.WithDefaults()

	first, err := parseTimeOnDate(date, schedule.FirstSeating)
	if err != nil {
		return nil, fmt.Errorf("parse first seating: %w", err)
	}
	last, err := parseTimeOnDate(date, schedule.LastSeating)
	if err != nil {
		return nil, fmt.Errorf("parse last seating: %w", err)
	}
	if last.Before(first) {
		return nil, fmt.Errorf("last seating %s before first seating %s", schedule.LastSeating, schedule.FirstSeating)
	}

	now := g.now()
	step := time.Duration(schedule.SlotMinutes) * time.Minute
	var slots []Slot
	for cursor := first; !cursor.After(last); cursor = cursor.Add(step) {
		slots = append(slots, Slot{
			Start:     cursor,
			Available: !cursor.Before(now),
		})
	}
	return slots, nil
}

// ToSlotInfo converts slots for JSON responses.
func ToSlotInfo(slots []Slot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Time:      s.Start.Format("15:04"),
			Available: s.Available,
		}
	}
	return result
}

// PartySizeOptions returns the selectable party sizes 1..max.
func PartySizeOptions(max int) []int {
	if max <= 0 {
		max = DefaultMaxParty
	}
	options := make([]int, max)
	for i := range options {
		options[i] = i + 1
	}
	return options
}

func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour: %s", timeStr)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute: %s", timeStr)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
