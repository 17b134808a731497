package storage

import "sailbench/internal/model"

func runIDs(records []model.EvaluationRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.RunID
	}
	return ids
}
