package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
	"gopkg.in/yaml.v3"
)

type document struct {
	ExportedAt string   `json:"exported_at" yaml:"exported_at"`
	Count      int      `json:"count" yaml:"count"`
	Entries    []record `json:"entries" yaml:"entries"`
}

type record struct {
	ID              int64  `json:"id" yaml:"id"`
	Date            string `json:"date" yaml:"date"`
	Configuration   string `json:"configuration" yaml:"configuration"`
	ConfigurationID int64  `json:"configuration_id" yaml:"configuration_id"`
	Type            string `json:"type" yaml:"type"`
	Value           *int   `json:"value,omitempty" yaml:"value,omitempty"`
	Label           string `json:"label,omitempty" yaml:"label,omitempty"`
	Comment         string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

func newDocument(items []store.ItemWithConfiguration) document {
	doc := document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(items),
	}
	for _, it := range items {
		_, label := formatValue(it)
		doc.Entries = append(doc.Entries, record{
			ID:              it.Item.ID,
			Date:            store.FormatDate(it.Item.Date),
			Configuration:   it.Configuration.Name,
			ConfigurationID: it.Configuration.ID,
			Type:            tracking.Name(it.Configuration.TrackingType),
			Value:           it.Item.Value,
			Label:           label,
			Comment:         deref(it.Item.Comment),
		})
	}
	return doc
}

func ToJSON(items []store.ItemWithConfiguration, path string) error {
	data, err := json.MarshalIndent(newDocument(items), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func ToYAML(items []store.ItemWithConfiguration, path string) error {
	data, err := yaml.Marshal(newDocument(items))
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write yaml file: %w", err)
	}
	return nil
}

// Formats lists the accepted format names.
var Formats = []string{"csv", "json", "yaml"}

// Write exports items to path in the named format.
func Write(format string, items []store.ItemWithConfiguration, path string) error {
	switch format {
	case "csv":
		return ToCSV(items, path)
	case "json":
		return ToJSON(items, path)
	case "yaml", "yml":
		return ToYAML(items, path)
	}
	return fmt.Errorf("unknown export format %q", format)
}
