package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

// today is the current calendar day in local time.
func today() time.Time {
	return store.Day(now())
}

// parseDay accepts YYYY-MM-DD, "today", "yesterday", or a negative day
// offset such as -3. Empty means today.
func parseDay(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today(), nil
	case "yesterday":
		return today().AddDate(0, 0, -1), nil
	}
	if n, err := strconv.Atoi(s); err == nil && n <= 0 {
		return today().AddDate(0, 0, n), nil
	}
	d, err := store.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, yesterday or -N)", s)
	}
	return d, nil
}

// parseTrackingType maps user-facing names onto tracking types.
func parseTrackingType(s string) (tracking.Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scale", "1-10", "one_to_ten", "onetoten":
		return tracking.OneToTen, nil
	case "yesno", "yes_no", "yes/no", "bool":
		return tracking.YesNo, nil
	case "text", "text_entry", "journal":
		return tracking.Text, nil
	}
	return tracking.Parse(strings.ToUpper(s))
}

// resolveConfiguration finds a configuration by numeric id or by
// case-insensitive name.
func resolveConfiguration(arg string) (*store.Configuration, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return db.GetConfiguration(id)
	}
	configs, err := db.ListConfigurations()
	if err != nil {
		return nil, err
	}
	var match *store.Configuration
	for i := range configs {
		if strings.EqualFold(configs[i].Name, arg) {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one configuration, use its id", arg)
			}
			match = &configs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("configuration %q: %w", arg, store.ErrNotFound)
	}
	return match, nil
}

// parseValue reads a recorded value for t: a number, or for yes/no
// y/yes/n/no as well.
func parseValue(t tracking.Type, s string) (int, error) {
	if t == tracking.YesNo {
		switch strings.ToLower(s) {
		case "y", "yes", "true":
			return 1, nil
		case "n", "no", "false":
			return 0, nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if err := tracking.Validate(t, v); err != nil {
		return 0, err
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func padRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}
