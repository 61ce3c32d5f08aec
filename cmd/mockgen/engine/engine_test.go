package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jira-charts/internal/jira"
)

func TestGenerate_DecodesAsJiraIssues(t *testing.T) {
	cfg := GeneratorConfig{
		Scenario:   "chaos",
		Projects:   []string{"AAA", "BBB"},
		CLMProject: "CLM",
		Count:      50,
		Seed:       7,
		Now:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	issues := Generate(cfg)
	if len(issues) != 55 {
		t.Fatalf("expected 50 issues plus 5 CLM issues, got %d", len(issues))
	}

	linked := 0
	for _, dto := range issues {
		raw, err := json.Marshal(dto)
		if err != nil {
			t.Fatal(err)
		}
		issue, err := jira.DecodeIssue(raw)
		if err != nil {
			t.Fatalf("%s: %v", dto.Key, err)
		}
		if !strings.HasPrefix(issue.Key, issue.ProjectKey+"-") {
			t.Errorf("%s: key does not match project %s", issue.Key, issue.ProjectKey)
		}
		if issue.Created.IsZero() {
			t.Errorf("%s: created time did not parse", issue.Key)
		}
		if issue.ProjectKey == "CLM" {
			linked += len(issue.LinkedKeys)
		}
	}
	if linked == 0 {
		t.Errorf("expected CLM issues to carry links")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Count: 20, Seed: 42, Now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	a, _ := json.Marshal(Generate(cfg))
	b, _ := json.Marshal(Generate(cfg))
	if string(a) != string(b) {
		t.Errorf("expected identical output for the same seed")
	}
}

func TestSave_ReadableByFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mock.json")
	issues := Generate(GeneratorConfig{Count: 10, Seed: 1})
	if err := Save(path, issues); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := jira.FileFetcher{Path: path}.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != len(issues) {
		t.Errorf("expected %d records, got %d", len(issues), len(records))
	}
}
