package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/daytracker/internal/tracking"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addConfig(t *testing.T, s *Store, name string, typ tracking.Type) Configuration {
	t.Helper()
	c := NewConfiguration(name, typ)
	if _, err := s.SaveConfiguration(&c); err != nil {
		t.Fatalf("save configuration: %v", err)
	}
	return c
}

func intp(v int) *int { return &v }

var day = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/daytracker.db"

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	c := addConfig(t, s, "Mood", tracking.OneToTen)
	s.Close()

	// Reopen: data survives and migrations do not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.GetConfiguration(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Mood" {
		t.Fatalf("expected Mood, got %q", got.Name)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestMigrationFromV1KeepsRows(t *testing.T) {
	s := newTestStore(t)
	// Rebuild a v1 database by hand and migrate it forward.
	resetSchema(t, s)
	if err := s.migrateTo(1); err != nil {
		t.Fatal(err)
	}
	s.db.Exec(`INSERT INTO item_configuration (name, tracking_type, active) VALUES ('Pain', 'ONE_TO_TEN', 1)`)
	s.db.Exec(`INSERT INTO item (date, configuration, value) VALUES ('2024-03-14', 1, 4)`)

	if err := s.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	items, err := s.ListItemsForDate(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || *items[0].Value != 4 || items[0].Comment != nil {
		t.Fatalf("unexpected items after migration: %+v", items)
	}
	c, err := s.GetConfiguration(1)
	if err != nil {
		t.Fatal(err)
	}
	if c.OrderOverride != nil || c.LastModified.IsZero() {
		t.Fatalf("unexpected configuration after migration: %+v", c)
	}
}

func TestMigrationFailureKeepsEarlierSteps(t *testing.T) {
	s := newTestStore(t)
	resetSchema(t, s)
	if err := s.migrateTo(1); err != nil {
		t.Fatal(err)
	}
	// Make the second ALTER of v3 fail after the first one ran.
	if _, err := s.db.Exec(`ALTER TABLE item_configuration ADD COLUMN last_modified TEXT`); err != nil {
		t.Fatal(err)
	}

	if err := s.migrate(); err == nil {
		t.Fatal("expected v3 to fail on the existing column")
	}
	if v := userVersion(t, s); v != 2 {
		t.Fatalf("expected user_version 2 after failed v3, got %d", v)
	}

	if _, err := s.db.Exec(`ALTER TABLE item_configuration DROP COLUMN last_modified`); err != nil {
		t.Fatal(err)
	}
	if err := s.migrate(); err != nil {
		t.Fatalf("resumed migration: %v", err)
	}
	if v := userVersion(t, s); v != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, v)
	}
}

func resetSchema(t *testing.T, s *Store) {
	t.Helper()
	for _, stmt := range []string{
		"DROP TRIGGER item_configuration_last_modified",
		"DROP TABLE item", "DROP TABLE item_configuration", "DROP TABLE settings", "DROP TABLE work",
		"PRAGMA user_version = 0",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
}

func userVersion(t *testing.T, s *Store) int {
	t.Helper()
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

// ============================================================
// Configurations
// ============================================================

func TestSaveConfigurationInserts(t *testing.T) {
	s := newTestStore(t)
	c := NewConfiguration("Mood", tracking.OneToTen)
	id, err := s.SaveConfiguration(&c)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 || c.ID != id {
		t.Fatalf("expected written-back id, got %d / %d", id, c.ID)
	}
	got, err := s.GetConfiguration(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Mood" || got.TrackingType != tracking.OneToTen || !got.Active {
		t.Fatalf("unexpected configuration: %+v", got)
	}
	if got.LastModified.IsZero() {
		t.Fatal("LastModified should be set")
	}
}

func TestSaveConfigurationUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.YesNo)

	a.Name = "Renamed"
	id, err := s.SaveConfiguration(&a)
	if err != nil {
		t.Fatal(err)
	}
	if id != a.ID {
		t.Fatalf("update changed identity: %d -> %d", a.ID, id)
	}

	configs, _ := s.ListConfigurations()
	if len(configs) != 2 {
		t.Fatalf("expected 2 configurations, got %d", len(configs))
	}
	if configs[0].ID != a.ID || configs[0].Name != "Renamed" || configs[1].ID != b.ID {
		t.Fatalf("update reordered rows: %+v", configs)
	}
}

func TestSaveConfigurationKeepsItems(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)
	s.SaveItems(&Item{Date: day, ConfigurationID: c.ID, Value: intp(5)})

	c.Name = "Mood (evening)"
	if _, err := s.SaveConfiguration(&c); err != nil {
		t.Fatal(err)
	}
	items, _ := s.ListItemsForDate(day)
	if len(items) != 1 {
		t.Fatalf("update must not cascade, got %d items", len(items))
	}
}

func TestSaveConfigurationMissing(t *testing.T) {
	s := newTestStore(t)
	c := NewConfiguration("Ghost", tracking.Text)
	c.ID = 42
	_, err := s.SaveConfiguration(&c)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetConfigurationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConfiguration(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConfigurationsEmpty(t *testing.T) {
	s := newTestStore(t)
	configs, err := s.ListConfigurations()
	if err != nil {
		t.Fatal(err)
	}
	if configs != nil {
		t.Fatalf("expected nil slice, got %d items", len(configs))
	}
}

func TestListConfigurationsEffectiveOrder(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.OneToTen)
	c := addConfig(t, s, "C", tracking.OneToTen)

	// Without overrides the identity order holds.
	configs, _ := s.ListConfigurations()
	if configs[0].ID != a.ID || configs[1].ID != b.ID || configs[2].ID != c.ID {
		t.Fatalf("expected identity order, got %v", names(configs))
	}

	// Move A behind C.
	a.OrderOverride = intp(int(c.ID) + 1)
	s.SaveConfiguration(&a)
	configs, _ = s.ListConfigurations()
	if got := names(configs); got != "BCA" {
		t.Fatalf("expected BCA, got %s", got)
	}
}

func names(cs []Configuration) string {
	out := ""
	for _, c := range cs {
		out += c.Name
	}
	return out
}

func TestCompareTotalOrder(t *testing.T) {
	one, three := 1, 3
	cs := []Configuration{
		{ID: 1},
		{ID: 2, OrderOverride: &one},
		{ID: 3},
		{ID: 4, OrderOverride: &three},
	}
	for _, a := range cs {
		if Compare(a, a) != 0 {
			t.Fatalf("Compare(%d,%d) should be 0", a.ID, a.ID)
		}
		for _, b := range cs {
			if a.ID == b.ID {
				continue
			}
			ab, ba := Compare(a, b), Compare(b, a)
			if ab == 0 || ab != -ba {
				t.Fatalf("Compare(%d,%d)=%d, Compare(%d,%d)=%d", a.ID, b.ID, ab, b.ID, a.ID, ba)
			}
			want := a.Order() < b.Order() || (a.Order() == b.Order() && a.ID < b.ID)
			if (ab < 0) != want {
				t.Fatalf("Compare(%d,%d)=%d disagrees with effective order", a.ID, b.ID, ab)
			}
		}
	}
}

func TestOrderDefaultsToIdentity(t *testing.T) {
	c := Configuration{ID: 7}
	if c.Order() != 7 {
		t.Fatalf("expected 7, got %d", c.Order())
	}
	five := 5
	c.OrderOverride = &five
	if c.Order() != 5 {
		t.Fatalf("expected 5, got %d", c.Order())
	}
}

func TestLastModifiedTriggerBumpsOnUpdate(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)
	before := c.LastModified

	time.Sleep(5 * time.Millisecond)
	c.Name = "Energy"
	if _, err := s.SaveConfiguration(&c); err != nil {
		t.Fatal(err)
	}
	if !c.LastModified.After(before) {
		t.Fatalf("last_modified not bumped: %v -> %v", before, c.LastModified)
	}
}

func TestLastModifiedTriggerRespectsExplicitWrite(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)

	const explicit = "2020-01-01T00:00:00.000Z"
	if _, err := s.db.Exec(`UPDATE item_configuration SET name = 'x', last_modified = ? WHERE id = ?`, explicit, c.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetConfiguration(c.ID)
	if got.LastModified.Format(timeLayout) != explicit {
		t.Fatalf("explicit last_modified overwritten: %v", got.LastModified)
	}
}

func TestSaveConfigurationsAtomicSwap(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.OneToTen)

	ao, bo := int(a.Order()), int(b.Order())
	a.OrderOverride, b.OrderOverride = &bo, &ao
	if err := s.SaveConfigurations(&a, &b); err != nil {
		t.Fatal(err)
	}
	configs, _ := s.ListConfigurations()
	if got := names(configs); got != "BA" {
		t.Fatalf("expected BA, got %s", got)
	}
}

func TestSaveConfigurationsRollsBack(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	ghost := Configuration{ID: 99, Name: "ghost", TrackingType: tracking.Text}

	a.Name = "changed"
	if err := s.SaveConfigurations(&a, &ghost); err == nil {
		t.Fatal("expected error for missing configuration")
	}
	got, _ := s.GetConfiguration(a.ID)
	if got.Name != "A" {
		t.Fatalf("expected rollback, got %q", got.Name)
	}
}

func TestDeleteConfigurationCascades(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Pain", tracking.OneToTen)
	other := addConfig(t, s, "Mood", tracking.OneToTen)

	for i := 0; i < 5; i++ {
		s.SaveItems(&Item{Date: day.AddDate(0, 0, i), ConfigurationID: c.ID, Value: intp(i + 1)})
	}
	s.SaveItems(&Item{Date: day, ConfigurationID: other.ID})

	if err := s.DeleteConfiguration(c.ID); err != nil {
		t.Fatal(err)
	}

	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM item WHERE configuration = ?`, c.ID).Scan(&n)
	if n != 0 {
		t.Fatalf("expected cascade to remove items, %d remain", n)
	}
	items, _ := s.ListItems()
	if len(items) != 1 {
		t.Fatalf("expected other configuration's item to survive, got %d", len(items))
	}
}

func TestDeleteConfigurationAbsent(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteConfiguration(123); err != nil {
		t.Fatalf("deleting an absent configuration should be a no-op: %v", err)
	}
}

func TestNotifiableCount(t *testing.T) {
	s := newTestStore(t)
	addConfig(t, s, "Pain", tracking.OneToTen)
	addConfig(t, s, "Walk", tracking.YesNo)
	addConfig(t, s, "Journal", tracking.Text)
	inactive := addConfig(t, s, "Old", tracking.OneToTen)
	inactive.Active = false
	s.SaveConfiguration(&inactive)

	n, err := s.NotifiableCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 notifiable configurations, got %d", n)
	}
}

// ============================================================
// Items
// ============================================================

func TestSaveItemsInsertAssignsID(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)

	it := &Item{Date: day, ConfigurationID: c.ID}
	if err := s.SaveItems(it); err != nil {
		t.Fatal(err)
	}
	if it.ID == 0 {
		t.Fatal("expected fresh id")
	}

	second := &Item{Date: day, ConfigurationID: c.ID}
	s.SaveItems(second)
	if second.ID == it.ID {
		t.Fatal("id 0 must always insert a new row")
	}
}

func TestSaveItemsUpdatePreservesID(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)
	it := &Item{Date: day, ConfigurationID: c.ID}
	s.SaveItems(it)
	id := it.ID

	it.Value = intp(8)
	comment := "slept well"
	it.Comment = &comment
	if err := s.SaveItems(it); err != nil {
		t.Fatal(err)
	}
	if it.ID != id {
		t.Fatalf("update changed id %d -> %d", id, it.ID)
	}

	items, _ := s.ListItemsForDate(day)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != id || *items[0].Value != 8 || *items[0].Comment != "slept well" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestSaveItemsClearsValue(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)
	it := &Item{Date: day, ConfigurationID: c.ID, Value: intp(3)}
	s.SaveItems(it)

	it.Value = nil
	s.SaveItems(it)
	items, _ := s.ListItemsForDate(day)
	if items[0].Value != nil {
		t.Fatal("expected value cleared")
	}
}

func TestSaveItemsBatchIsAtomic(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.OneToTen)

	err := s.SaveItems(
		&Item{Date: day, ConfigurationID: c.ID},
		&Item{Date: day, ConfigurationID: 999}, // foreign key violation
	)
	if err == nil {
		t.Fatal("expected foreign key error")
	}
	items, _ := s.ListItems()
	if len(items) != 0 {
		t.Fatalf("expected rollback, got %d items", len(items))
	}
}

func TestSaveItemsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveItems(); err != nil {
		t.Fatal(err)
	}
}

func TestListFullRange(t *testing.T) {
	s := newTestStore(t)
	c := addConfig(t, s, "Mood", tracking.YesNo)
	for i := -1; i <= 3; i++ {
		s.SaveItems(&Item{Date: day.AddDate(0, 0, i), ConfigurationID: c.ID, Value: intp(1)})
	}

	full, err := s.ListFull(day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 3 {
		t.Fatalf("expected 3 items in inclusive range, got %d", len(full))
	}
	for _, f := range full {
		if f.Configuration.ID != c.ID || f.Configuration.TrackingType != tracking.YesNo {
			t.Fatalf("configuration not joined: %+v", f.Configuration)
		}
	}
	if !full[0].Item.Date.Equal(day) {
		t.Fatalf("expected chronological order, first = %v", full[0].Item.Date)
	}

	one, _ := s.ListFullForDate(day)
	if len(one) != 1 {
		t.Fatalf("expected 1 item for day, got %d", len(one))
	}
}

func TestEarliestDate(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.EarliestDate()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no earliest date for empty store")
	}

	c := addConfig(t, s, "Mood", tracking.OneToTen)
	s.SaveItems(
		&Item{Date: day, ConfigurationID: c.ID},
		&Item{Date: day.AddDate(0, 0, -10), ConfigurationID: c.ID},
	)
	d, ok, _ := s.EarliestDate()
	if !ok || !d.Equal(day.AddDate(0, 0, -10)) {
		t.Fatalf("expected %v, got %v (ok=%v)", day.AddDate(0, 0, -10), d, ok)
	}
}

func TestMissingCountScenario(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.YesNo)
	c := addConfig(t, s, "C", tracking.Text)

	n, _ := s.MissingCount(day)
	if n != 2 {
		t.Fatalf("no entries: expected missing = notifiable count 2, got %d", n)
	}

	s.SaveItems(
		&Item{Date: day, ConfigurationID: a.ID, Value: intp(7)},
		&Item{Date: day, ConfigurationID: b.ID},
		&Item{Date: day, ConfigurationID: c.ID},
	)
	n, err := s.MissingCount(day)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("A=7, B and C unset: expected missing 1, got %d", n)
	}
}

func TestMissingCountDecrements(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	addConfig(t, s, "B", tracking.YesNo)

	before, _ := s.MissingCount(day)
	s.SaveItems(&Item{Date: day, ConfigurationID: a.ID, Value: intp(2)})
	after, _ := s.MissingCount(day)
	if before-after != 1 {
		t.Fatalf("expected decrement by one, %d -> %d", before, after)
	}

	// A value on another day does not count.
	other, _ := s.MissingCount(day.AddDate(0, 0, 1))
	if other != 2 {
		t.Fatalf("expected 2 missing on other day, got %d", other)
	}
}

func TestMissingCountIgnoresInactive(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	a.Active = false
	s.SaveConfiguration(&a)

	n, _ := s.MissingCount(day)
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestCompletedCount(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.OneToTen)
	s.SaveItems(
		&Item{Date: day, ConfigurationID: a.ID, Value: intp(1)},
		&Item{Date: day, ConfigurationID: b.ID},
	)
	n, err := s.CompletedCount(day)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}

func TestRecordedCount(t *testing.T) {
	s := newTestStore(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	s.SaveItems(
		&Item{Date: day, ConfigurationID: a.ID, Value: intp(1)},
		&Item{Date: day.AddDate(0, 0, 1), ConfigurationID: a.ID},
		&Item{Date: day.AddDate(0, 0, 2), ConfigurationID: a.ID, Value: intp(4)},
	)
	n, err := s.RecordedCount(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestForeignKeyItemConfiguration(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveItems(&Item{Date: day, ConfigurationID: 404}); err == nil {
		t.Fatal("expected FK violation for unknown configuration")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if got.ReminderEnabled || got.ReminderTime != (TimeOfDay{Hour: 18}) || got.ShowRecordedValues {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestSettersAreIndependent(t *testing.T) {
	s := newTestStore(t)
	s.SetReminderEnabled(true)
	s.SetReminderTime(TimeOfDay{Hour: 7, Minute: 30})
	s.SetShowRecordedValues(true)
	s.SetLowValueColor(0xFF112233)
	s.SetHighValueColor(0xFF445566)
	s.SetWeekStart(time.Sunday)

	got, _ := s.Settings()
	want := Settings{
		ReminderEnabled:    true,
		ReminderTime:       TimeOfDay{Hour: 7, Minute: 30},
		ShowRecordedValues: true,
		LowValueColor:      0xFF112233,
		HighValueColor:     0xFF445566,
		WeekStart:          time.Sunday,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMalformedSettingsFallBack(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting(KeyReminderTime, "quarter past six")
	s.SetSetting(KeyReminderEnabled, "maybe")
	s.SetSetting(KeyLowValueColor, "blue")
	s.SetSetting(KeyWeekStart, "someday")

	got, err := s.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got != DefaultSettings() {
		t.Fatalf("expected defaults for malformed values, got %+v", got)
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("k", "v1")
	s.SetSetting("k", "v2")
	v, _ := s.GetSetting("k")
	if v != "v2" {
		t.Fatalf("expected v2, got %s", v)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAllSettingsSorted(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("b", "2")
	s.SetSetting("a", "1")
	all, _ := s.GetAllSettings()
	if len(all) != 2 || all[0].Key != "a" {
		t.Fatalf("unexpected settings: %+v", all)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"18:00", TimeOfDay{18, 0}, true},
		{"07:05", TimeOfDay{7, 5}, true},
		{"21:30:15", TimeOfDay{21, 30}, true},
		{"25:00", TimeOfDay{}, false},
		{"", TimeOfDay{}, false},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#6750A4", 0xFF6750A4, true},
		{"#806750A4", 0x806750A4, true},
		{"-10006364", 0xFF6750A4, true}, // signed ARGB int as persisted
		{"#12345", 0, false},
		{"red", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = %#x, %v", tt.in, uint32(got), err)
		}
	}
	if Color(0xFF6750A4).Hex() != "#6750A4" {
		t.Fatalf("unexpected hex %s", Color(0xFF6750A4).Hex())
	}
}

// ============================================================
// Work registrations
// ============================================================

func TestEnqueueUniquePeriodicReplaces(t *testing.T) {
	s := newTestStore(t)
	first, err := s.EnqueueUniquePeriodic("job", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.EnqueueUniquePeriodic("job", 2*time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if first.Token == second.Token {
		t.Fatal("re-registration should mint a new token")
	}

	w, err := s.GetWork("job")
	if err != nil {
		t.Fatal(err)
	}
	if w.Token != second.Token || w.Period != 24*time.Hour {
		t.Fatalf("unexpected registration: %+v", w)
	}
	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM work`).Scan(&n)
	if n != 1 {
		t.Fatalf("expected a single registration, got %d", n)
	}
}

func TestCancelUniqueWork(t *testing.T) {
	s := newTestStore(t)
	s.EnqueueUniquePeriodic("job", time.Hour, time.Hour)
	if err := s.CancelUniqueWork("job"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWork("job"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.CancelUniqueWork("job"); err != nil {
		t.Fatalf("cancel of absent work should be a no-op: %v", err)
	}
}

func TestDueWorkAndReschedule(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.EnqueueUniquePeriodic("job", 0, time.Hour)

	due, err := s.DueWork(time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due, got %d", len(due))
	}

	ok, err := s.RescheduleWork("job", w.Token, time.Now().Add(time.Hour), 0)
	if err != nil || !ok {
		t.Fatalf("reschedule: %v %v", ok, err)
	}
	due, _ = s.DueWork(time.Now())
	if len(due) != 0 {
		t.Fatalf("expected nothing due, got %d", len(due))
	}

	// A stale token must not move a newer registration.
	ok, _ = s.RescheduleWork("job", uuid.New(), time.Now(), 3)
	if ok {
		t.Fatal("stale token should not reschedule")
	}
}

// ============================================================
// Live queries
// ============================================================

func recv[T any](t *testing.T, ch <-chan Update[T]) Update[T] {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live update")
	}
	panic("unreachable")
}

func TestLiveQueryPushesOnWrite(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.WatchConfigurations().Subscribe(ctx)
	if u := recv(t, ch); u.Err != nil || len(u.Value) != 0 {
		t.Fatalf("unexpected initial update: %+v", u)
	}

	addConfig(t, s, "Mood", tracking.OneToTen)
	u := recv(t, ch)
	if len(u.Value) != 1 || u.Value[0].Name != "Mood" {
		t.Fatalf("expected pushed configuration, got %+v", u.Value)
	}
}

func TestLiveQuerySharesUpstreamAndReleasesAfterGrace(t *testing.T) {
	s := newTestStore(t)
	q := s.WatchSettings(WithGrace(300 * time.Millisecond))

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	a := q.Subscribe(ctx1)
	recv(t, a)
	b := q.Subscribe(ctx2)
	recv(t, b)
	if q.Observers() != 2 {
		t.Fatalf("expected 2 observers, got %d", q.Observers())
	}

	cancel1()
	cancel2()
	deadline := time.Now().Add(time.Second)
	for q.Observers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !q.Active() {
		t.Fatal("upstream should survive the grace period")
	}
	for q.Active() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if q.Active() {
		t.Fatal("upstream should be released after the grace period")
	}
}

func TestLiveQueryClosesOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.WatchEarliestDate(WithGrace(0)).Subscribe(ctx)
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// a final pending value may still be drained
			if _, ok := <-ch; ok {
				t.Fatal("channel should close")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestLiveQueryPollsForOtherConnections(t *testing.T) {
	path := t.TempDir() + "/poll.db"
	a, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := a.WatchSettings(WithPoll(10 * time.Millisecond)).Subscribe(ctx)
	recv(t, ch)

	if err := b.SetReminderEnabled(true); err != nil {
		t.Fatal(err)
	}
	u := recv(t, ch)
	if !u.Value.ReminderEnabled {
		t.Fatalf("expected change from other connection, got %+v", u.Value)
	}
}
