package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/daytracker/internal/tracking"
)

const itemColumns = `i.id, i.date, i.configuration, i.value, i.comment`

func scanItem(row rowScanner, extra ...any) (Item, error) {
	var it Item
	var date string
	var value sql.NullInt64
	var comment sql.NullString
	dest := append([]any{&it.ID, &date, &it.ConfigurationID, &value, &comment}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Item{}, err
	}
	it.Date, _ = time.Parse(dateLayout, date)
	if value.Valid {
		v := int(value.Int64)
		it.Value = &v
	}
	if comment.Valid {
		c := comment.String
		it.Comment = &c
	}
	return it, nil
}

func (s *Store) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListItems returns every item.
func (s *Store) ListItems() ([]Item, error) {
	items, err := s.queryItems(`SELECT ` + itemColumns + ` FROM item i ORDER BY i.date, i.id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListItemsForDate returns the items recorded on date.
func (s *Store) ListItemsForDate(date time.Time) ([]Item, error) {
	items, err := s.queryItems(`SELECT `+itemColumns+` FROM item i WHERE i.date = ? ORDER BY i.id`, FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", FormatDate(date), err)
	}
	return items, nil
}

func (s *Store) queryFull(query string, args ...any) ([]ItemWithConfiguration, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemWithConfiguration
	for rows.Next() {
		var c Configuration
		var tag, lastModified string
		var active int
		var order sql.NullInt64
		it, err := scanItem(rows, &c.ID, &c.Name, &tag, &active, &order, &lastModified)
		if err != nil {
			return nil, err
		}
		if c.TrackingType, err = tracking.Parse(tag); err != nil {
			return nil, fmt.Errorf("configuration %d: %w", c.ID, err)
		}
		c.Active = active == 1
		if order.Valid {
			o := int(order.Int64)
			c.OrderOverride = &o
		}
		c.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
		out = append(out, ItemWithConfiguration{Item: it, Configuration: c})
	}
	return out, rows.Err()
}

const fullSelect = `SELECT ` + itemColumns + `, c.id, c.name, c.tracking_type, c.active, c.order_override, c.last_modified
	FROM item i JOIN item_configuration c ON c.id = i.configuration`

// ListFull returns items dated within [min, max], joined with their
// configuration.
func (s *Store) ListFull(min, max time.Time) ([]ItemWithConfiguration, error) {
	full, err := s.queryFull(fullSelect+` WHERE i.date >= ? AND i.date <= ? ORDER BY i.date, i.id`,
		FormatDate(min), FormatDate(max))
	if err != nil {
		return nil, fmt.Errorf("list items %s..%s: %w", FormatDate(min), FormatDate(max), err)
	}
	return full, nil
}

// ListFullForDate returns the items of one day joined with their configuration.
func (s *Store) ListFullForDate(date time.Time) ([]ItemWithConfiguration, error) {
	return s.ListFull(date, date)
}

// EarliestDate returns the first day any item was created for. ok is false
// when there are no items.
func (s *Store) EarliestDate() (date time.Time, ok bool, err error) {
	var d sql.NullString
	if err := s.db.QueryRow(`SELECT MIN(date) FROM item`).Scan(&d); err != nil {
		return time.Time{}, false, fmt.Errorf("earliest date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	date, err = time.Parse(dateLayout, d.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earliest date: %w", err)
	}
	return date, true, nil
}

// SaveItems upserts items in one transaction. An item with ID zero is
// inserted and receives its new ID; any other ID replaces that row.
func (s *Store) SaveItems(items ...*Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, it := range items {
		var value, comment any
		if it.Value != nil {
			value = *it.Value
		}
		if it.Comment != nil {
			comment = *it.Comment
		}

		if it.ID == 0 {
			res, err := tx.Exec(
				`INSERT INTO item (date, configuration, value, comment) VALUES (?, ?, ?, ?)`,
				FormatDate(it.Date), it.ConfigurationID, value, comment,
			)
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			if it.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("insert item id: %w", err)
			}
			continue
		}

		_, err := tx.Exec(
			`INSERT INTO item (id, date, configuration, value, comment) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   date = excluded.date,
			   configuration = excluded.configuration,
			   value = excluded.value,
			   comment = excluded.comment`,
			it.ID, FormatDate(it.Date), it.ConfigurationID, value, comment,
		)
		if err != nil {
			return fmt.Errorf("save item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit items: %w", err)
	}
	s.changed()
	return nil
}

// CompletedCount counts the items on date that carry a value.
func (s *Store) CompletedCount(date time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM item WHERE date = ? AND value IS NOT NULL`, FormatDate(date),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("completed count: %w", err)
	}
	return n, nil
}

// MissingCount counts the active, notifiable configurations that have no
// recorded value on date.
func (s *Store) MissingCount(date time.Time) (int, error) {
	tags := tracking.NotifiableTags()
	query := `
		SELECT COUNT(*) FROM item_configuration c
		WHERE c.active = 1
		  AND c.tracking_type IN (` + placeholders(len(tags)) + `)
		  AND NOT EXISTS (
		    SELECT 1 FROM item i
		    WHERE i.configuration = c.id AND i.date = ? AND i.value IS NOT NULL
		  )`
	args := append(stringArgs(tags), FormatDate(date))

	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("missing count: %w", err)
	}
	return n, nil
}

// RecordedCount counts the items of a configuration that carry a value.
func (s *Store) RecordedCount(configurationID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM item WHERE configuration = ? AND value IS NOT NULL`, configurationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("recorded count: %w", err)
	}
	return n, nil
}
