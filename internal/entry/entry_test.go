package entry

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/sadopc/daytracker/internal/logging"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(s, logging.Discard()), s
}

func addConfig(t *testing.T, s *store.Store, name string, typ tracking.Type) store.Configuration {
	t.Helper()
	c := store.NewConfiguration(name, typ)
	_, err := s.SaveConfiguration(&c)
	require.NoError(t, err)
	return c
}

func row(id int64, modified time.Time, name string) store.ItemWithConfiguration {
	return store.ItemWithConfiguration{
		Item:          store.Item{ID: id * 100, ConfigurationID: id},
		Configuration: store.Configuration{ID: id, Name: name, TrackingType: tracking.OneToTen, Active: true, LastModified: modified},
	}
}

func intp(v int) *int { return &v }

func strp(s string) *string { return &s }

// ============================================================
// Merge
// ============================================================

func TestMergeLaterPendingWins(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	saved := []store.ItemWithConfiguration{row(1, t0, "saved"), row(2, t0, "two")}
	pending := []store.ItemWithConfiguration{row(1, t0.Add(time.Second), "pending")}

	got := Merge(saved, pending)
	require.Len(t, got, 2)
	assert.Equal(t, "pending", got[0].Configuration.Name)
	assert.Equal(t, "two", got[1].Configuration.Name)
}

func TestMergeSavedWinsTiesAndNewer(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := Merge([]store.ItemWithConfiguration{row(1, t0, "saved")}, []store.ItemWithConfiguration{row(1, t0, "pending")})
	assert.Equal(t, "saved", got[0].Configuration.Name, "tie keeps saved")

	got = Merge([]store.ItemWithConfiguration{row(1, t0.Add(time.Minute), "saved")}, []store.ItemWithConfiguration{row(1, t0, "pending")})
	assert.Equal(t, "saved", got[0].Configuration.Name)
}

func TestMergeDropsRowsMissingFromSaved(t *testing.T) {
	t0 := time.Now()
	got := Merge([]store.ItemWithConfiguration{row(1, t0, "a")}, []store.ItemWithConfiguration{row(9, t0.Add(time.Hour), "deleted")})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Configuration.ID)
}

func TestMergeSortsByConfigurationOrder(t *testing.T) {
	t0 := time.Now()
	a, b := row(1, t0, "a"), row(2, t0, "b")
	zero := 0
	b.Configuration.OrderOverride = &zero

	got := Merge([]store.ItemWithConfiguration{a, b}, nil)
	assert.Equal(t, "b", got[0].Configuration.Name)
	assert.Equal(t, "a", got[1].Configuration.Name)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, []store.ItemWithConfiguration{row(1, time.Now(), "x")}))
}

// ============================================================
// Swap
// ============================================================

func TestSwapIsOptimistic(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := State{Date: day, Items: []store.ItemWithConfiguration{row(1, t0, "a"), row(2, t0, "b"), row(3, t0, "c")}}
	now := t0.Add(time.Hour)

	next, persist, ok := Swap(state, 1, 3, now)
	require.True(t, ok)
	require.Len(t, persist, 2)
	assert.Equal(t, 3, *persist[0].OrderOverride)
	assert.Equal(t, 1, *persist[1].OrderOverride)

	names := ""
	for _, r := range next.Items {
		names += r.Configuration.Name
	}
	assert.Equal(t, "cba", names)

	// A stale store result from before the write does not undo the swap.
	stale := next.Apply(state.Items)
	names = ""
	for _, r := range stale.Items {
		names += r.Configuration.Name
	}
	assert.Equal(t, "cba", names)
}

func TestSwapUnknown(t *testing.T) {
	state := State{Items: []store.ItemWithConfiguration{row(1, time.Now(), "a")}}
	_, _, ok := Swap(state, 1, 2, time.Now())
	assert.False(t, ok)
	_, _, ok = Swap(state, 1, 1, time.Now())
	assert.False(t, ok)
}

func TestServiceSwapPersists(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.YesNo)

	items, err := svc.Day(day)
	require.NoError(t, err)
	state := State{Date: day, Items: items}

	next, err := svc.Swap(state, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, next.Items[0].Configuration.ID)

	configs, err := s.ListConfigurations()
	require.NoError(t, err)
	assert.Equal(t, "B", configs[0].Name)
	assert.Equal(t, "A", configs[1].Name)

	_, err = svc.Swap(state, a.ID, 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMove(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	addConfig(t, s, "B", tracking.OneToTen)
	c := addConfig(t, s, "C", tracking.OneToTen)

	require.NoError(t, svc.Move(c.ID, -1))
	configs, _ := s.ListConfigurations()
	assert.Equal(t, "ACB", configs[0].Name+configs[1].Name+configs[2].Name)

	assert.ErrorIs(t, svc.Move(a.ID, -1), ErrNoNeighbour)
	assert.ErrorIs(t, svc.Move(999, 1), store.ErrNotFound)
}

// ============================================================
// Service
// ============================================================

func TestEnsureItemsIsIdempotent(t *testing.T) {
	svc, s := newTestService(t)
	addConfig(t, s, "A", tracking.OneToTen)
	addConfig(t, s, "B", tracking.Text)
	inactive := addConfig(t, s, "Old", tracking.YesNo)
	inactive.Active = false
	_, err := s.SaveConfiguration(&inactive)
	require.NoError(t, err)

	n, err := svc.EnsureItems(day.Add(13 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.EnsureItems(day)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	items, _ := s.ListItemsForDate(day)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.Nil(t, it.Value)
	}
}

func TestSaveNewConfigurationCreatesItem(t *testing.T) {
	svc, s := newTestService(t)
	c := store.NewConfiguration("Sleep", tracking.OneToTen)
	require.NoError(t, svc.SaveNewConfiguration(&c, day))
	assert.NotZero(t, c.ID)

	items, _ := s.ListItemsForDate(day)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ConfigurationID)

	blank := store.NewConfiguration("  ", tracking.YesNo)
	assert.Error(t, svc.SaveNewConfiguration(&blank, day))
}

func TestSwapStampsToStoredPrecision(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := State{Date: day, Items: []store.ItemWithConfiguration{row(1, t0, "a"), row(2, t0, "b")}}
	now := time.Date(2024, 1, 1, 12, 0, 0, 123456789, time.UTC)

	next, _, ok := Swap(state, 1, 2, now)
	require.True(t, ok)
	for _, r := range next.Items {
		assert.Equal(t, now.Truncate(time.Millisecond), r.Configuration.LastModified)
	}
}

func TestSwapThenRecordShowsSavedValue(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	b := addConfig(t, s, "B", tracking.OneToTen)

	full, err := svc.Day(day)
	require.NoError(t, err)
	state := State{Date: day, Items: full}

	// Repeat so the save regularly lands in the same millisecond as the swap.
	for i := range 20 {
		next, persist, ok := Swap(state, a.ID, b.ID, time.Now().UTC())
		require.True(t, ok)
		require.NoError(t, s.SaveConfigurations(&persist[0], &persist[1]))
		full, err = s.ListFullForDate(day)
		require.NoError(t, err)
		state = next.Apply(full)

		v := i%10 + 1
		_, err = svc.Record(day, a.ID, &v, nil)
		require.NoError(t, err)
		full, err = s.ListFullForDate(day)
		require.NoError(t, err)
		state = state.Apply(full)

		idx := slices.IndexFunc(state.Items, func(r store.ItemWithConfiguration) bool { return r.Configuration.ID == a.ID })
		require.GreaterOrEqual(t, idx, 0)
		require.NotNil(t, state.Items[idx].Item.Value, "iteration %d", i)
		require.Equal(t, v, *state.Items[idx].Item.Value, "iteration %d", i)
	}
}

func TestRecordUpdatesEnsuredItem(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	_, err := svc.EnsureItems(day)
	require.NoError(t, err)
	before, _ := s.ListItemsForDate(day)

	it, err := svc.Record(day, a.ID, intp(7), nil)
	require.NoError(t, err)
	assert.Equal(t, before[0].ID, it.ID)

	items, _ := s.ListItemsForDate(day)
	require.Len(t, items, 1)
	assert.Equal(t, 7, *items[0].Value)
}

func TestRecordValidates(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.YesNo)
	_, err := svc.Record(day, a.ID, intp(5), nil)
	assert.Error(t, err)

	_, err = svc.Record(day, 999, intp(1), nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTextDerivesValue(t *testing.T) {
	svc, s := newTestService(t)
	c := addConfig(t, s, "Journal", tracking.Text)

	it, err := svc.Record(day, c.ID, nil, strp("walked the dog"))
	require.NoError(t, err)
	require.NotNil(t, it.Value)
	assert.Equal(t, tracking.TextRecorded, *it.Value)

	it, err = svc.Record(day, c.ID, intp(9), strp(""))
	require.NoError(t, err)
	assert.Nil(t, it.Value)
}

func TestRecordCommentKeepsValue(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "Pain", tracking.OneToTen)

	_, err := svc.Record(day, a.ID, intp(7), nil)
	require.NoError(t, err)
	it, err := svc.Record(day, a.ID, nil, strp("after lunch"))
	require.NoError(t, err)

	require.NotNil(t, it.Value)
	assert.Equal(t, 7, *it.Value)
	assert.Equal(t, "after lunch", *it.Comment)
}

func TestClear(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "Pain", tracking.OneToTen)
	j := addConfig(t, s, "Journal", tracking.Text)

	_, err := svc.Record(day, a.ID, intp(7), strp("sharp"))
	require.NoError(t, err)
	it, err := svc.Clear(day, a.ID)
	require.NoError(t, err)
	assert.Nil(t, it.Value)
	assert.Equal(t, "sharp", *it.Comment)

	_, err = svc.Record(day, j.ID, nil, strp("slept badly"))
	require.NoError(t, err)
	it, err = svc.Clear(day, j.ID)
	require.NoError(t, err)
	assert.Nil(t, it.Value)
	assert.Nil(t, it.Comment)

	_, err = svc.Clear(day, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTextWithoutCommentKeepsText(t *testing.T) {
	svc, s := newTestService(t)
	j := addConfig(t, s, "Journal", tracking.Text)

	_, err := svc.Record(day, j.ID, nil, strp("walked the dog"))
	require.NoError(t, err)
	it, err := svc.Record(day, j.ID, nil, nil)
	require.NoError(t, err)

	require.NotNil(t, it.Value)
	assert.Equal(t, tracking.TextRecorded, *it.Value)
	assert.Equal(t, "walked the dog", *it.Comment)

	n, err := s.CompletedCount(day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMissingCountScenarioThroughService(t *testing.T) {
	svc, s := newTestService(t)
	a := addConfig(t, s, "A", tracking.OneToTen)
	addConfig(t, s, "B", tracking.YesNo)
	addConfig(t, s, "C", tracking.Text)

	_, err := svc.Day(day)
	require.NoError(t, err)
	_, err = svc.Record(day, a.ID, intp(7), nil)
	require.NoError(t, err)

	n, err := s.MissingCount(day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoading(t *testing.T) {
	configs := []store.Configuration{{ID: 1, Active: true}, {ID: 2, Active: true}, {ID: 3}}
	assert.Equal(t, 2, Loading(configs, nil))
	assert.Equal(t, 1, Loading(configs, []store.ItemWithConfiguration{row(1, time.Now(), "a")}))
	assert.Equal(t, 0, Loading(nil, []store.ItemWithConfiguration{row(1, time.Now(), "a")}))
}
