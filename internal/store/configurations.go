package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sadopc/daytracker/internal/tracking"
)

const configurationColumns = `id, name, tracking_type, active, order_override, last_modified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (Configuration, error) {
	var c Configuration
	var tag, lastModified string
	var active int
	var order sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &tag, &active, &order, &lastModified); err != nil {
		return Configuration{}, err
	}
	t, err := tracking.Parse(tag)
	if err != nil {
		return Configuration{}, fmt.Errorf("configuration %d: %w", c.ID, err)
	}
	c.TrackingType = t
	c.Active = active == 1
	if order.Valid {
		o := int(order.Int64)
		c.OrderOverride = &o
	}
	c.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
	return c, nil
}

func (s *Store) GetConfiguration(id int64) (*Configuration, error) {
	c, err := scanConfiguration(s.db.QueryRow(
		`SELECT `+configurationColumns+` FROM item_configuration WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get configuration %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get configuration %d: %w", id, err)
	}
	return &c, nil
}

// ListConfigurations returns every configuration in effective order.
func (s *Store) ListConfigurations() ([]Configuration, error) {
	rows, err := s.db.Query(`SELECT ` + configurationColumns + ` FROM item_configuration`)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close()

	var configs []Configuration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(configs, Compare)
	return configs, nil
}

// SaveConfiguration inserts c when its ID is zero and updates it in place
// otherwise. Updating in place keeps the row's identity, so cascades and the
// order of other rows are untouched. The ID is returned and written back.
func (s *Store) SaveConfiguration(c *Configuration) (int64, error) {
	if err := s.saveConfiguration(s.db, c); err != nil {
		return 0, err
	}
	s.changed()
	return c.ID, nil
}

// SaveConfigurations updates several existing configurations atomically.
func (s *Store) SaveConfigurations(cs ...*Configuration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cs {
		if err := s.saveConfiguration(tx, c); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit configurations: %w", err)
	}
	s.changed()
	return nil
}

type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *Store) saveConfiguration(db dbtx, c *Configuration) error {
	if c.TrackingType == nil {
		c.TrackingType = tracking.OneToTen
	}
	var order any
	if c.OrderOverride != nil {
		order = *c.OrderOverride
	}

	if c.ID == 0 {
		now := time.Now().UTC()
		res, err := db.Exec(
			`INSERT INTO item_configuration (name, tracking_type, active, order_override, last_modified)
			 VALUES (?, ?, ?, ?, ?)`,
			c.Name, c.TrackingType.Tag(), boolInt(c.Active), order, now.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert configuration: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert configuration id: %w", err)
		}
		c.ID = id
		c.LastModified, _ = time.Parse(time.RFC3339Nano, now.Format(timeLayout))
		return nil
	}

	res, err := db.Exec(
		`UPDATE item_configuration SET name = ?, tracking_type = ?, active = ?, order_override = ? WHERE id = ?`,
		c.Name, c.TrackingType.Tag(), boolInt(c.Active), order, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update configuration %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update configuration %d: %w", c.ID, ErrNotFound)
	}

	var lastModified string
	if err := db.QueryRow(`SELECT last_modified FROM item_configuration WHERE id = ?`, c.ID).Scan(&lastModified); err != nil {
		return fmt.Errorf("read last_modified %d: %w", c.ID, err)
	}
	c.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
	return nil
}

// DeleteConfiguration removes the configuration and, by cascade, its items.
func (s *Store) DeleteConfiguration(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM item_configuration WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete configuration %d: %w", id, err)
	}
	s.changed()
	return nil
}

// NotifiableCount counts the active configurations whose tracking type
// takes part in the daily reminder.
func (s *Store) NotifiableCount() (int, error) {
	tags := tracking.NotifiableTags()
	query := `SELECT COUNT(*) FROM item_configuration WHERE active = 1 AND tracking_type IN (` + placeholders(len(tags)) + `)`
	var n int
	if err := s.db.QueryRow(query, stringArgs(tags)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("notifiable count: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
