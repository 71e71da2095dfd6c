package monitor

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// Export serializes events matching the filter in the given format
func (m *Monitor) Export(ctx context.Context, filter EventFilter, format ExportFormat) ([]byte, error) {
	events, err := m.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for export: %w", err)
	}

	switch format {
	case ExportFormatJSON:
		return exportJSON(events)
	case ExportFormatNDJSON:
		return exportNDJSON(events)
	case ExportFormatCSV:
		return exportCSV(events)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportJSON exports events as a JSON array
func exportJSON(events []SecurityEvent) ([]byte, error) {
	return json.MarshalIndent(events, "", "  ")
}

// exportNDJSON exports events as newline-delimited JSON
func exportNDJSON(events []SecurityEvent) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return nil, fmt.Errorf("failed to encode event: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// exportCSV exports events as CSV
func exportCSV(events []SecurityEvent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"ID",
		"Timestamp",
		"Type",
		"RiskLevel",
		"UserID",
		"IP",
		"UserAgent",
		"Resource",
		"Action",
		"Success",
	}

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, event := range events {
		row := []string{
			event.ID,
			event.Timestamp.Format("2006-01-02 15:04:05"),
			string(event.Type),
			string(event.RiskLevel),
			event.UserID,
			event.IP,
			event.UserAgent,
			event.Resource,
			event.Action,
			strconv.FormatBool(event.Success),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
