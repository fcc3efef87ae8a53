package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// ── extractFinding ───────────────────────────────────────────────────────────

func TestExtractFinding_EventBridgeEnvelope(t *testing.T) {
	event := map[string]any{
		"detail-type": "Security Hub Findings - Imported",
		"detail": map[string]any{
			"findings": []any{
				map[string]any{"Id": "finding-1"},
				map[string]any{"Id": "finding-2"},
			},
		},
	}
	finding, eventType := extractFinding(event)
	if finding["Id"] != "finding-1" {
		t.Errorf("finding: got %v; want first element", finding)
	}
	if eventType != "Security Hub Findings - Imported" {
		t.Errorf("event type: got %q", eventType)
	}
}

func TestExtractFinding_BareFinding(t *testing.T) {
	event := map[string]any{"Id": "finding-1", "AwsAccountId": "111111111111"}
	finding, eventType := extractFinding(event)
	if finding["Id"] != "finding-1" {
		t.Errorf("bare finding must pass through, got %v", finding)
	}
	if eventType != "" {
		t.Errorf("event type: got %q; want empty", eventType)
	}
}

func TestExtractFinding_EmptyFindingsList(t *testing.T) {
	event := map[string]any{
		"detail-type": "Security Hub Findings - Custom Action",
		"detail":      map[string]any{"findings": []any{}},
	}
	finding, eventType := extractFinding(event)
	if finding["detail-type"] != "Security Hub Findings - Custom Action" {
		t.Errorf("empty list must fall back to the envelope, got %v", finding)
	}
	if eventType != "Security Hub Findings - Custom Action" {
		t.Errorf("event type: got %q", eventType)
	}
}

// ── readEventInto ────────────────────────────────────────────────────────────

func TestReadEventInto_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(`{"Id":"finding-1"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var event map[string]any
	if err := readEventInto(path, &event); err != nil {
		t.Fatalf("readEventInto returned error: %v", err)
	}
	if event["Id"] != "finding-1" {
		t.Errorf("event: got %v", event)
	}
}

func TestReadEventInto_MissingFile(t *testing.T) {
	var event map[string]any
	if err := readEventInto(filepath.Join(t.TempDir(), "absent.json"), &event); err == nil {
		t.Error("want error for missing file")
	}
}

func TestReadEventInto_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var event map[string]any
	if err := readEventInto(path, &event); err == nil {
		t.Error("want error for malformed JSON")
	}
}

// ── printJSON ────────────────────────────────────────────────────────────────

func TestPrintJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]string{"status": "SUCCESS"}); err != nil {
		t.Fatalf("printJSON returned error: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if decoded["status"] != "SUCCESS" {
		t.Errorf("decoded: got %v", decoded)
	}
}
