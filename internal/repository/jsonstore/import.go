package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"potholewatch/internal/model"
	"potholewatch/internal/repository"
)

// ImportResult counts what an Import stored and what it skipped.
type ImportResult struct {
	History        int
	SkippedHistory int
	Reports        int
	SkippedReports int
	Theme          string
	Ignored        []string
}

// Import merges a browser storage dump into kv. Values may be the stored
// strings themselves (what localStorage holds) or the decoded JSON. History
// entries already stored are skipped, so importing the same dump twice is a
// no-op. Reports with a known id or failing validation are skipped, an invalid
// theme is ignored, and unknown keys are listed in Ignored.
func Import(kv repository.KeyValueStore, dump map[string]json.RawMessage) (ImportResult, error) {
	var res ImportResult

	if raw, ok := dump[repository.HistoryKey]; ok {
		entries, err := unwrapList[model.DetectionResult](repository.HistoryKey, raw)
		if err != nil {
			return res, err
		}
		history := NewHistoryStore(kv)
		stored, err := history.All()
		if err != nil {
			return res, err
		}
		seen := make(map[string]bool, len(stored))
		for _, e := range stored {
			seen[historyKey(e)] = true
		}
		for _, e := range entries {
			if seen[historyKey(e)] {
				res.SkippedHistory++
				continue
			}
			if err := history.Append(e); err != nil {
				return res, err
			}
			res.History++
		}
	}

	if raw, ok := dump[repository.ReportsKey]; ok {
		list, err := unwrapList[model.Report](repository.ReportsKey, raw)
		if err != nil {
			return res, err
		}
		store := NewReportStore(kv)
		for _, r := range list {
			err := store.Append(r)
			switch {
			case err == nil:
				res.Reports++
			case errors.Is(err, repository.ErrDuplicate), errors.Is(err, ErrInvalidReport):
				res.SkippedReports++
			default:
				return res, err
			}
		}
	}

	if raw, ok := dump[repository.ThemeKey]; ok {
		var theme string
		if err := json.Unmarshal(raw, &theme); err != nil {
			return res, fmt.Errorf("%w: %s: %v", ErrCorrupt, repository.ThemeKey, err)
		}
		err := NewPreferenceStore(kv).SetTheme(theme)
		switch {
		case err == nil:
			res.Theme = theme
		case !errors.Is(err, ErrUnknownTheme):
			return res, err
		}
	}

	for key := range dump {
		switch key {
		case repository.HistoryKey, repository.ReportsKey, repository.ThemeKey:
		default:
			res.Ignored = append(res.Ignored, key)
		}
	}
	sort.Strings(res.Ignored)
	return res, nil
}

// historyKey identifies a history entry by its timestamp, count and
// detections, normalized the way HistoryStore.Append stores them.
func historyKey(e model.DetectionResult) string {
	entry := model.NewDetectionResult(e.Timestamp.UTC(), e.Detections)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("%s/%d/%v", entry.Timestamp.Format(time.RFC3339Nano), entry.Count, entry.Detections)
	}
	return string(data)
}

// unwrapList decodes raw as a JSON array, first unquoting it when it holds the
// array as a string.
func unwrapList[T any](key string, raw json.RawMessage) ([]T, error) {
	text := string(raw)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
		}
	}
	return decodeList[T](key, text, true)
}
