package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreEvaluations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.SaveEvaluation(ctx, sampleRecord("early", "x")); err == nil {
		t.Fatal("expected error before init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, record := range []struct{ id, at string }{
		{"a", "2026-10-19T10:00:00Z"},
		{"b", "2026-10-19T11:00:00Z"},
		{"c", "2026-10-19T11:00:00Z"},
	} {
		if err := store.SaveEvaluation(ctx, sampleRecord(record.id, record.at)); err != nil {
			t.Fatalf("save %s: %v", record.id, err)
		}
	}

	got, ok, err := store.GetEvaluation(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("get a: ok=%t err=%v", ok, err)
	}
	if got.AgentName != "greedy" || len(got.Seeds) != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
	got.Summary.Scenarios["simple_static"] = got.Summary.Scenarios["other"]
	again, _, _ := store.GetEvaluation(ctx, "a")
	if again.Summary.Scenarios["simple_static"].MeanReward != 100 {
		t.Fatal("stored record shares state with returned copy")
	}

	if _, ok, err := store.GetEvaluation(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing record, ok=%t err=%v", ok, err)
	}

	list, err := store.ListEvaluations(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].RunID != "c" || list[1].RunID != "b" || list[2].RunID != "a" {
		t.Fatalf("unexpected list order: %v", runIDs(list))
	}
	limited, err := store.ListEvaluations(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d err=%v", len(limited), err)
	}

	if err := store.SaveEvaluation(ctx, sampleRecord("", "x")); err == nil {
		t.Fatal("expected error for empty run id")
	}
}
