package jsonstore

import (
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
)

// HistoryStore implements repository.HistoryRepository.
type HistoryStore struct {
	kv repository.KeyValueStore
}

// NewHistoryStore creates a history log under repository.HistoryKey.
func NewHistoryStore(kv repository.KeyValueStore) *HistoryStore {
	return &HistoryStore{kv: kv}
}

// Append adds a copy of result to the end of the log.
func (s *HistoryStore) Append(result model.DetectionResult) error {
	entry := model.NewDetectionResult(result.Timestamp, result.Detections)
	return s.kv.Update(repository.HistoryKey, func(current string, ok bool) (string, error) {
		list, err := decodeList[model.DetectionResult](repository.HistoryKey, current, ok)
		if err != nil {
			return "", err
		}
		return encodeList(repository.HistoryKey, append(list, entry))
	})
}

// All returns the log in insertion order.
func (s *HistoryStore) All() ([]model.DetectionResult, error) {
	raw, ok, err := s.kv.Get(repository.HistoryKey)
	if err != nil {
		return nil, err
	}
	return decodeList[model.DetectionResult](repository.HistoryKey, raw, ok)
}
