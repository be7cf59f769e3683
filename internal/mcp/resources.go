package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	todayURI    = "daytracker://today"
	settingsURI = "daytracker://settings"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today's Entries",
		Description: "Every entry for today and how many are still missing",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         settingsURI,
		Name:        "Tracker Settings",
		Description: "Reminder and display preferences",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	_, day, err := s.handleGetDay(ctx, nil, dayInput{})
	if err != nil {
		return nil, err
	}
	return jsonResource(todayURI, day)
}

func (s *Server) handleSettingsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	settings, err := s.store.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return jsonResource(settingsURI, map[string]any{
		"reminder_enabled":     settings.ReminderEnabled,
		"reminder_time":        settings.ReminderTime.String(),
		"show_recorded_values": settings.ShowRecordedValues,
		"low_value_color":      settings.LowValueColor.Hex(),
		"high_value_color":     settings.HighValueColor.Hex(),
		"week_start":           settings.WeekStart.String(),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
