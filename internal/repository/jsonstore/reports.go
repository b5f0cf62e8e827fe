package jsonstore

import (
	"errors"
	"fmt"

	"potholewatch/internal/model"
	"potholewatch/internal/repository"
)

// ErrInvalidReport is returned for reports that break the count or status rules.
var ErrInvalidReport = errors.New("invalid report")

// ReportStore implements repository.ReportRepository.
type ReportStore struct {
	kv repository.KeyValueStore
}

// NewReportStore creates a report collection under repository.ReportsKey.
func NewReportStore(kv repository.KeyValueStore) *ReportStore {
	return &ReportStore{kv: kv}
}

func validate(r model.Report) error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidReport)
	}
	if _, err := model.ParseStatus(string(r.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if r.HighSeverityCount < 0 || r.PotholesCount < r.HighSeverityCount {
		return fmt.Errorf("%w: potholesCount %d, highSeverityCount %d", ErrInvalidReport, r.PotholesCount, r.HighSeverityCount)
	}
	return nil
}

// Append stores report. Ids must be unique.
func (s *ReportStore) Append(report model.Report) error {
	if err := validate(report); err != nil {
		return err
	}
	report.Detections = model.CloneDetections(report.Detections)

	return s.kv.Update(repository.ReportsKey, func(current string, ok bool) (string, error) {
		list, err := decodeList[model.Report](repository.ReportsKey, current, ok)
		if err != nil {
			return "", err
		}
		for _, r := range list {
			if r.ID == report.ID {
				return "", fmt.Errorf("report %s: %w", report.ID, repository.ErrDuplicate)
			}
		}
		return encodeList(repository.ReportsKey, append(list, report))
	})
}

// All returns reports in insertion order.
func (s *ReportStore) All() ([]model.Report, error) {
	raw, ok, err := s.kv.Get(repository.ReportsKey)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Report](repository.ReportsKey, raw, ok)
}

// GetByID returns the report with id.
func (s *ReportStore) GetByID(id string) (model.Report, error) {
	list, err := s.All()
	if err != nil {
		return model.Report{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Report{}, fmt.Errorf("report %s: %w", id, repository.ErrNotFound)
}

// Update applies patch to the report with id and returns the stored result.
func (s *ReportStore) Update(id string, patch model.ReportPatch) (model.Report, error) {
	if patch.Status != nil {
		if _, err := model.ParseStatus(string(*patch.Status)); err != nil {
			return model.Report{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
	}

	var updated model.Report
	err := s.kv.Update(repository.ReportsKey, func(current string, ok bool) (string, error) {
		list, err := decodeList[model.Report](repository.ReportsKey, current, ok)
		if err != nil {
			return "", err
		}
		for i := range list {
			if list[i].ID == id {
				list[i] = patch.Apply(list[i])
				updated = list[i]
				return encodeList(repository.ReportsKey, list)
			}
		}
		return "", fmt.Errorf("report %s: %w", id, repository.ErrNotFound)
	})
	if err != nil {
		return model.Report{}, err
	}
	return updated, nil
}
