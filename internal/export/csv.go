package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

func ToCSV(items []store.ItemWithConfiguration, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Date", "Configuration", "Type", "Value", "Label", "Comment"}); err != nil {
		return err
	}

	for _, it := range items {
		value, label := formatValue(it)
		row := []string{
			strconv.FormatInt(it.Item.ID, 10),
			store.FormatDate(it.Item.Date),
			it.Configuration.Name,
			it.Configuration.TrackingType.Tag(),
			value,
			label,
			deref(it.Item.Comment),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatValue renders the raw value and its display label; both are empty
// for an unrecorded item.
func formatValue(it store.ItemWithConfiguration) (value, label string) {
	if it.Item.Value == nil {
		return "", ""
	}
	label, _ = tracking.Label(it.Configuration.TrackingType, *it.Item.Value)
	return strconv.Itoa(*it.Item.Value), label
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
