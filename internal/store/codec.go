// internal/store/codec.go
package store

import (
	"encoding/json"
	"fmt"

	"github-dashboard/internal/model"
)

func encodeRecord(rec model.CacheRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal cache record: %w", err)
	}
	return b, nil
}

func decodeRecord(payload []byte) (*model.CacheRecord, error) {
	var rec model.CacheRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cache record: %w", err)
	}
	// A snapshot without its timestamp (or the reverse) is treated as nothing stored.
	if rec.IsEmpty() {
		return &model.CacheRecord{}, nil
	}
	return &rec, nil
}
