package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

// recordRow mirrors BulkRecordInput with string dates so files may use either
// RFC 3339 timestamps or plain calendar dates.
type recordRow struct {
	UID            string                       `json:"uid"`
	Type           string                       `json:"type"`
	StartDate      string                       `json:"intervention_start_date"`
	EndDate        string                       `json:"intervention_end_date"`
	Geometry       json.RawMessage              `json:"geometry"`
	TotalTreeCount int                          `json:"total_tree_count"`
	Species        []domainagg.SpeciesLineInput `json:"species"`
	Description    string                       `json:"description"`
}

type recordFile struct {
	SiteUID string      `json:"site_uid"`
	Records []recordRow `json:"records"`
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func loadRecordFile(path string) (recordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recordFile{}, err
	}
	return parseRecords(data, isYAMLPath(path))
}

// yamlToJSON re-encodes a YAML document as JSON so nested raw fields survive
// the json decoders used for both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return converted, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseRecords accepts a bare list of records or an object with site_uid and
// records.
func parseRecords(data []byte, isYAML bool) (recordFile, error) {
	if isYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return recordFile{}, err
		}
		data = converted
	}

	var out recordFile
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out.Records); err != nil {
			return recordFile{}, fmt.Errorf("parse records: %w", err)
		}
		return out, nil
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return recordFile{}, fmt.Errorf("parse records: %w", err)
	}
	return out, nil
}

func (f recordFile) toInputs() ([]domainagg.BulkRecordInput, error) {
	out := make([]domainagg.BulkRecordInput, 0, len(f.Records))
	for i, r := range f.Records {
		start, err := parseDate(r.StartDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: intervention_start_date: %w", i, err)
		}
		end, err := parseDate(r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: intervention_end_date: %w", i, err)
		}
		out = append(out, domainagg.BulkRecordInput{
			UID:            strings.TrimSpace(r.UID),
			Type:           r.Type,
			StartDate:      start,
			EndDate:        end,
			Geometry:       r.Geometry,
			TotalTreeCount: r.TotalTreeCount,
			Species:        r.Species,
			Description:    r.Description,
		})
	}
	return out, nil
}
