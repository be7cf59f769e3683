// Package entry holds the daily entry workflow: making sure a day has an item
// for every active configuration, reconciling live store results with
// edits that have not come back from the store yet, and reordering.
package entry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

// ErrNoNeighbour is returned by Move when the configuration is already at
// the edge of the list.
var ErrNoNeighbour = errors.New("no configuration to swap with")

// State is the entry screen's view of one day.
type State struct {
	Date    time.Time
	Items   []store.ItemWithConfiguration
	Unsaved *store.Configuration
}

// Apply folds a fresh store result into the state.
func (s State) Apply(saved []store.ItemWithConfiguration) State {
	s.Items = Merge(saved, s.Items)
	return s
}

// Merge reconciles saved rows with pending local edits. Rows are keyed by
// configuration; the one with the later LastModified wins and saved wins
// ties. Configurations absent from saved are dropped. The result is in
// configuration order.
func Merge(saved, pending []store.ItemWithConfiguration) []store.ItemWithConfiguration {
	out := make([]store.ItemWithConfiguration, 0, len(saved))
	index := make(map[int64]int, len(saved))
	for _, row := range saved {
		if i, ok := index[row.Configuration.ID]; ok {
			if row.Configuration.LastModified.After(out[i].Configuration.LastModified) {
				out[i] = row
			}
			continue
		}
		index[row.Configuration.ID] = len(out)
		out = append(out, row)
	}
	for _, row := range pending {
		i, ok := index[row.Configuration.ID]
		if !ok {
			continue
		}
		if row.Configuration.LastModified.After(out[i].Configuration.LastModified) {
			out[i] = row
		}
	}
	slices.SortStableFunc(out, func(a, b store.ItemWithConfiguration) int {
		return store.Compare(a.Configuration, b.Configuration)
	})
	return out
}

// Swap exchanges the effective order of configurations a and b. It returns
// the optimistically merged state and the two configurations to persist;
// ok is false when either is not part of the state.
func Swap(s State, a, b int64, now time.Time) (next State, persist []store.Configuration, ok bool) {
	// Stamps are stored to the millisecond; a finer pending stamp would
	// outrank the saved row written in the same millisecond.
	now = now.UTC().Truncate(time.Millisecond)
	ia := slices.IndexFunc(s.Items, func(r store.ItemWithConfiguration) bool { return r.Configuration.ID == a })
	ib := slices.IndexFunc(s.Items, func(r store.ItemWithConfiguration) bool { return r.Configuration.ID == b })
	if ia < 0 || ib < 0 || a == b {
		return s, nil, false
	}

	ca, cb := swapOrder(s.Items[ia].Configuration, s.Items[ib].Configuration)
	ra, rb := s.Items[ia], s.Items[ib]
	ra.Configuration, rb.Configuration = ca, cb
	ra.Configuration.LastModified = now
	rb.Configuration.LastModified = now

	s.Items = Merge(s.Items, []store.ItemWithConfiguration{ra, rb})
	return s, []store.Configuration{ca, cb}, true
}

func swapOrder(a, b store.Configuration) (store.Configuration, store.Configuration) {
	oa, ob := int(a.Order()), int(b.Order())
	a.OrderOverride, b.OrderOverride = &ob, &oa
	return a, b
}

// Loading is how many placeholders to show while ensured items arrive.
func Loading(configs []store.Configuration, items []store.ItemWithConfiguration) int {
	active := 0
	for _, c := range configs {
		if c.Active {
			active++
		}
	}
	return max(0, active-len(items))
}

// Service runs entry workflows against a store.
type Service struct {
	store *store.Store
	log   *log.Logger
}

func NewService(s *store.Store, logger *log.Logger) *Service {
	return &Service{store: s, log: logger}
}

// EnsureItems creates an empty item on date for every active configuration
// lacking one, and returns how many it created.
func (s *Service) EnsureItems(date time.Time) (int, error) {
	date = store.Day(date)
	s.log.Debug("ensuring items", "date", store.FormatDate(date))

	items, err := s.store.ListItemsForDate(date)
	if err != nil {
		return 0, err
	}
	configs, err := s.store.ListConfigurations()
	if err != nil {
		return 0, err
	}

	have := make(map[int64]bool, len(items))
	for _, it := range items {
		have[it.ConfigurationID] = true
	}
	var missing []*store.Item
	for _, c := range configs {
		if c.Active && !have[c.ID] {
			missing = append(missing, &store.Item{Date: date, ConfigurationID: c.ID})
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.store.SaveItems(missing...); err != nil {
		return 0, fmt.Errorf("ensure items: %w", err)
	}
	s.log.Debug("created items", "date", store.FormatDate(date), "count", len(missing))
	return len(missing), nil
}

// Day ensures date and returns its items joined with their configuration,
// in configuration order.
func (s *Service) Day(date time.Time) ([]store.ItemWithConfiguration, error) {
	if _, err := s.EnsureItems(date); err != nil {
		return nil, err
	}
	full, err := s.store.ListFullForDate(store.Day(date))
	if err != nil {
		return nil, err
	}
	return Merge(full, nil), nil
}

// SaveNewConfiguration inserts c and creates its item for date.
func (s *Service) SaveNewConfiguration(c *store.Configuration, date time.Time) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("configuration name is required")
	}
	c.ID = 0
	if _, err := s.store.SaveConfiguration(c); err != nil {
		return err
	}
	return s.store.SaveItems(&store.Item{Date: store.Day(date), ConfigurationID: c.ID})
}

// Record sets the value and comment of a configuration's item on date,
// creating the item if needed. A nil value keeps the recorded one and a nil
// comment keeps the stored comment; use Clear to remove a value. For text
// configurations the value is derived from the resulting comment.
func (s *Service) Record(date time.Time, configurationID int64, value *int, comment *string) (store.Item, error) {
	c, it, err := s.item(date, configurationID)
	if err != nil {
		return store.Item{}, err
	}

	if comment != nil {
		it.Comment = comment
	}
	switch c.TrackingType.(type) {
	case *tracking.Options:
		if value != nil {
			if err := tracking.Validate(c.TrackingType, *value); err != nil {
				return store.Item{}, err
			}
			it.Value = value
		}
	case tracking.TextEntry:
		it.Value = textValue(it.Comment)
	default:
		panic(fmt.Sprintf("entry: unhandled tracking type %T", c.TrackingType))
	}

	if err := s.store.SaveItems(&it); err != nil {
		return store.Item{}, err
	}
	if it.Value != nil {
		s.log.Debug("recorded", "configuration", c.Name, "date", store.FormatDate(it.Date), "value", *it.Value)
	}
	return it, nil
}

// Clear removes the recorded value of a configuration on date. Text
// entries lose their text as well.
func (s *Service) Clear(date time.Time, configurationID int64) (store.Item, error) {
	c, it, err := s.item(date, configurationID)
	if err != nil {
		return store.Item{}, err
	}
	it.Value = nil
	if _, isText := c.TrackingType.(tracking.TextEntry); isText {
		it.Comment = nil
	}
	if err := s.store.SaveItems(&it); err != nil {
		return store.Item{}, err
	}
	s.log.Debug("cleared", "configuration", c.Name, "date", store.FormatDate(it.Date))
	return it, nil
}

// item loads a configuration and its item on date; the item is unsaved when
// the day has none yet.
func (s *Service) item(date time.Time, configurationID int64) (*store.Configuration, store.Item, error) {
	date = store.Day(date)
	c, err := s.store.GetConfiguration(configurationID)
	if err != nil {
		return nil, store.Item{}, err
	}
	items, err := s.store.ListItemsForDate(date)
	if err != nil {
		return nil, store.Item{}, err
	}
	it := store.Item{Date: date, ConfigurationID: c.ID}
	if i := slices.IndexFunc(items, func(it store.Item) bool { return it.ConfigurationID == c.ID }); i >= 0 {
		it = items[i]
	}
	return c, it, nil
}

func textValue(comment *string) *int {
	if comment == nil || strings.TrimSpace(*comment) == "" {
		return nil
	}
	v := tracking.TextRecorded
	return &v
}

// Swap applies Swap to state and persists both configurations atomically.
func (s *Service) Swap(state State, a, b int64) (State, error) {
	next, persist, ok := Swap(state, a, b, time.Now().UTC())
	if !ok {
		return state, fmt.Errorf("swap %d and %d: %w", a, b, store.ErrNotFound)
	}
	if err := s.store.SaveConfigurations(&persist[0], &persist[1]); err != nil {
		return state, err
	}
	return next, nil
}

// Move swaps configuration id with its neighbour delta steps away in the
// effective order (-1 up, +1 down).
func (s *Service) Move(id int64, delta int) error {
	configs, err := s.store.ListConfigurations()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(configs, func(c store.Configuration) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("move configuration %d: %w", id, store.ErrNotFound)
	}
	j := i + delta
	if j < 0 || j >= len(configs) {
		return ErrNoNeighbour
	}
	a, b := swapOrder(configs[i], configs[j])
	return s.store.SaveConfigurations(&a, &b)
}
