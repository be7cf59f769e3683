package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sadopc/daytracker/internal/report"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_configurations",
		Description: "List tracked configurations (what is tracked and how) in display order",
	}, s.handleListConfigurations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_day",
		Description: "Get every entry for one day, creating empty entries for active configurations",
	}, s.handleGetDay)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_entry",
		Description: "Record a value and/or comment for a configuration on a day, or clear it",
	}, s.handleRecordEntry)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "missing_count",
		Description: "Count active, reminder-eligible configurations with no value on a day",
	}, s.handleMissingCount)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_report",
		Description: "Get the calendar report for the month or week containing a date",
	}, s.handleGetReport)
}

// Tool input/output types

type listConfigurationsInput struct {
	IncludeInactive bool `json:"include_inactive,omitempty" jsonschema:"Also list deactivated configurations"`
}

type configurationOutput struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Active bool     `json:"active"`
	Order  int64    `json:"order"`
	Values []string `json:"values,omitempty"`
}

type listConfigurationsOutput struct {
	Configurations []configurationOutput `json:"configurations"`
}

type dayInput struct {
	Date string `json:"date,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
}

type entryOutput struct {
	ConfigurationID int64  `json:"configuration_id"`
	Configuration   string `json:"configuration"`
	Type            string `json:"type"`
	Value           *int   `json:"value,omitempty"`
	Label           string `json:"label,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

type dayOutput struct {
	Date    string        `json:"date"`
	Entries []entryOutput `json:"entries"`
	Missing int           `json:"missing"`
}

type recordEntryInput struct {
	ConfigurationID int64  `json:"configuration_id" jsonschema:"ID of the configuration to record"`
	Date            string `json:"date,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
	Value           *int   `json:"value,omitempty" jsonschema:"Value: 1-10 for scales, 0 or 1 for yes/no. Ignored for text configurations"`
	Comment         string `json:"comment,omitempty" jsonschema:"Optional comment; the entry text for text configurations"`
	Clear           bool   `json:"clear,omitempty" jsonschema:"Remove the recorded value (and the text of a text configuration) instead of recording"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type missingOutput struct {
	Date    string `json:"date"`
	Missing int    `json:"missing"`
}

type reportInput struct {
	Span string `json:"span,omitempty" jsonschema:"month or week, defaults to month"`
	Date string `json:"date,omitempty" jsonschema:"Any day inside the span as YYYY-MM-DD, defaults to today"`
}

type reportDay struct {
	Date    string `json:"date"`
	Label   string `json:"label,omitempty"`
	Comment string `json:"comment,omitempty"`
}

type reportCalendar struct {
	Configuration string      `json:"configuration"`
	Recorded      []reportDay `json:"recorded"`
	Average       *float64    `json:"average,omitempty"`
}

type reportOutput struct {
	From      string           `json:"from"`
	To        string           `json:"to"`
	Calendars []reportCalendar `json:"calendars"`
}

// Tool handlers

func (s *Server) handleListConfigurations(ctx context.Context, req *mcp.CallToolRequest, input listConfigurationsInput) (*mcp.CallToolResult, listConfigurationsOutput, error) {
	configs, err := s.store.ListConfigurations()
	if err != nil {
		return nil, listConfigurationsOutput{}, fmt.Errorf("failed to list configurations: %w", err)
	}

	out := listConfigurationsOutput{Configurations: []configurationOutput{}}
	for _, c := range configs {
		if !c.Active && !input.IncludeInactive {
			continue
		}
		co := configurationOutput{
			ID:     c.ID,
			Name:   c.Name,
			Type:   c.TrackingType.Tag(),
			Active: c.Active,
			Order:  c.Order(),
		}
		if opts, ok := c.TrackingType.(*tracking.Options); ok {
			for _, o := range opts.Options {
				co.Values = append(co.Values, fmt.Sprintf("%d=%s", o.Value, o.Text))
			}
		}
		out.Configurations = append(out.Configurations, co)
	}
	return nil, out, nil
}

func (s *Server) handleGetDay(ctx context.Context, req *mcp.CallToolRequest, input dayInput) (*mcp.CallToolResult, dayOutput, error) {
	date, err := s.parseDate(input.Date)
	if err != nil {
		return nil, dayOutput{}, err
	}
	items, err := s.entries.Day(date)
	if err != nil {
		return nil, dayOutput{}, fmt.Errorf("failed to load day: %w", err)
	}
	missing, err := s.store.MissingCount(date)
	if err != nil {
		return nil, dayOutput{}, err
	}

	out := dayOutput{Date: store.FormatDate(date), Entries: []entryOutput{}, Missing: missing}
	for _, it := range items {
		e := entryOutput{
			ConfigurationID: it.Configuration.ID,
			Configuration:   it.Configuration.Name,
			Type:            it.Configuration.TrackingType.Tag(),
			Value:           it.Item.Value,
		}
		if it.Item.Value != nil {
			e.Label, _ = tracking.Label(it.Configuration.TrackingType, *it.Item.Value)
		}
		if it.Item.Comment != nil {
			e.Comment = *it.Item.Comment
		}
		out.Entries = append(out.Entries, e)
	}
	return nil, out, nil
}

func (s *Server) handleRecordEntry(ctx context.Context, req *mcp.CallToolRequest, input recordEntryInput) (*mcp.CallToolResult, simpleOutput, error) {
	date, err := s.parseDate(input.Date)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if date.After(s.today()) {
		return nil, simpleOutput{}, fmt.Errorf("cannot record entries for a future day")
	}

	if input.Clear {
		it, err := s.entries.Clear(date, input.ConfigurationID)
		if err != nil {
			return nil, simpleOutput{}, fmt.Errorf("failed to clear entry: %w", err)
		}
		return nil, simpleOutput{Message: fmt.Sprintf("Cleared entry %d for %s", it.ID, store.FormatDate(date))}, nil
	}

	// An omitted value keeps the one already recorded.
	var comment *string
	if input.Comment != "" {
		comment = &input.Comment
	}
	it, err := s.entries.Record(date, input.ConfigurationID, input.Value, comment)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to record entry: %w", err)
	}

	msg := fmt.Sprintf("Recorded entry %d for %s", it.ID, store.FormatDate(date))
	if it.Value != nil {
		msg += fmt.Sprintf(" (value %d)", *it.Value)
	}
	return nil, simpleOutput{Message: msg}, nil
}

func (s *Server) handleMissingCount(ctx context.Context, req *mcp.CallToolRequest, input dayInput) (*mcp.CallToolResult, missingOutput, error) {
	date, err := s.parseDate(input.Date)
	if err != nil {
		return nil, missingOutput{}, err
	}
	n, err := s.store.MissingCount(date)
	if err != nil {
		return nil, missingOutput{}, fmt.Errorf("failed to count missing entries: %w", err)
	}
	return nil, missingOutput{Date: store.FormatDate(date), Missing: n}, nil
}

func (s *Server) handleGetReport(ctx context.Context, req *mcp.CallToolRequest, input reportInput) (*mcp.CallToolResult, reportOutput, error) {
	option := report.Month
	if strings.TrimSpace(input.Span) != "" {
		o, err := report.ParseDisplayOption(input.Span)
		if err != nil {
			return nil, reportOutput{}, err
		}
		option = o
	}
	anchor, err := s.parseDate(input.Date)
	if err != nil {
		return nil, reportOutput{}, err
	}
	settings, err := s.store.Settings()
	if err != nil {
		return nil, reportOutput{}, err
	}

	r := report.RangeFor(option, anchor, settings.WeekStart)
	full, err := s.store.ListFull(r.Start, r.End)
	if err != nil {
		return nil, reportOutput{}, fmt.Errorf("failed to load report: %w", err)
	}
	calendars := report.Aggregate(r, report.GroupItems(full), report.Options{
		ShowValues: true,
		WeekStart:  settings.WeekStart,
		Today:      s.today(),
	})

	averages := make(map[int64]float64)
	for _, a := range report.Averages(calendars) {
		averages[a.Configuration.ID] = a.Value
	}

	out := reportOutput{From: store.FormatDate(r.Start), To: store.FormatDate(r.End), Calendars: []reportCalendar{}}
	for _, c := range calendars {
		rc := reportCalendar{Configuration: c.Configuration.Name, Recorded: []reportDay{}}
		if avg, ok := averages[c.Configuration.ID]; ok {
			rc.Average = &avg
		}
		for _, w := range c.Weeks {
			for _, d := range w {
				if d.InRange && d.Recorded {
					rc.Recorded = append(rc.Recorded, reportDay{Date: store.FormatDate(d.Date), Label: d.Label, Comment: d.Comment})
				}
			}
		}
		out.Calendars = append(out.Calendars, rc)
	}
	return nil, out, nil
}
