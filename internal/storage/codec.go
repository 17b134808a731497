package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"sailbench/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current record versions.
func Stamp(record model.EvaluationRecord) model.EvaluationRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeEvaluation(record model.EvaluationRecord) ([]byte, error) {
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, fmt.Errorf("encode evaluation %s: %w", record.RunID, err)
	}
	return json.Marshal(record)
}

func DecodeEvaluation(data []byte) (model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.EvaluationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.EvaluationRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
