package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Setting keys.
const (
	KeyReminderEnabled    = "reminder_enabled"
	KeyReminderTime       = "reminder_time"
	KeyShowRecordedValues = "show_recorded_values"
	KeyLowValueColor      = "low_value_argb"
	KeyHighValueColor     = "high_value_argb"
	KeyWeekStart          = "week_start"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on the calendar day of d, in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, 0, 0, loc)
}

// ParseTimeOfDay parses HH:MM (seconds, if present, are ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

// Color is a packed 0xAARRGGBB colour.
type Color uint32

// Hex renders the colour as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// ParseColor accepts #RRGGBB, #AARRGGBB or a packed decimal integer.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || (len(hex) != 6 && len(hex) != 8) {
			return 0, fmt.Errorf("invalid colour %q", s)
		}
		if len(hex) == 6 {
			v |= 0xFF000000
		}
		return Color(v), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	return Color(uint32(v)), nil
}

// Settings is the merged preference snapshot.
type Settings struct {
	ReminderEnabled    bool
	ReminderTime       TimeOfDay
	ShowRecordedValues bool
	LowValueColor      Color
	HighValueColor     Color
	WeekStart          time.Weekday
}

// DefaultSettings is the snapshot for an empty settings table.
func DefaultSettings() Settings {
	return Settings{
		ReminderEnabled:    false,
		ReminderTime:       TimeOfDay{Hour: 18},
		ShowRecordedValues: false,
		LowValueColor:      0xFFB3261E,
		HighValueColor:     0xFF6750A4,
		WeekStart:          time.Monday,
	}
}

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	s.changed()
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Settings reads every preference, substituting the default for anything
// missing or malformed.
func (s *Store) Settings() (Settings, error) {
	all, err := s.GetAllSettings()
	if err != nil {
		return Settings{}, err
	}
	out := DefaultSettings()
	for _, kv := range all {
		switch kv.Key {
		case KeyReminderEnabled:
			if b, err := strconv.ParseBool(kv.Value); err == nil {
				out.ReminderEnabled = b
			}
		case KeyReminderTime:
			if t, err := ParseTimeOfDay(kv.Value); err == nil {
				out.ReminderTime = t
			}
		case KeyShowRecordedValues:
			if b, err := strconv.ParseBool(kv.Value); err == nil {
				out.ShowRecordedValues = b
			}
		case KeyLowValueColor:
			if c, err := ParseColor(kv.Value); err == nil {
				out.LowValueColor = c
			}
		case KeyHighValueColor:
			if c, err := ParseColor(kv.Value); err == nil {
				out.HighValueColor = c
			}
		case KeyWeekStart:
			if d, err := ParseWeekday(kv.Value); err == nil {
				out.WeekStart = d
			}
		}
	}
	return out, nil
}

func (s *Store) SetReminderEnabled(enabled bool) error {
	return s.SetSetting(KeyReminderEnabled, strconv.FormatBool(enabled))
}

func (s *Store) SetReminderTime(t TimeOfDay) error {
	return s.SetSetting(KeyReminderTime, t.String())
}

func (s *Store) SetShowRecordedValues(show bool) error {
	return s.SetSetting(KeyShowRecordedValues, strconv.FormatBool(show))
}

func (s *Store) SetLowValueColor(c Color) error {
	return s.SetSetting(KeyLowValueColor, strconv.FormatInt(int64(int32(c)), 10))
}

func (s *Store) SetHighValueColor(c Color) error {
	return s.SetSetting(KeyHighValueColor, strconv.FormatInt(int64(int32(c)), 10))
}

func (s *Store) SetWeekStart(d time.Weekday) error {
	return s.SetSetting(KeyWeekStart, strings.ToLower(d.String()))
}

// ParseWeekday accepts an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
