package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildSchemasCoversFrameAndScenarios(t *testing.T) {
	schemas := buildSchemas()
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	for name, schema := range schemas {
		data, err := json.Marshal(schema)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		if !strings.Contains(string(data), "Spin Arena") {
			t.Fatalf("expected title in %s", name)
		}
	}
	frame, _ := json.Marshal(schemas[frameSchemaFile])
	for _, field := range []string{"sessionId", "snapshot", "combatants", "ledger"} {
		if !strings.Contains(string(frame), field) {
			t.Fatalf("frame schema missing %q", field)
		}
	}
	scenarios, _ := json.Marshal(schemas[scenarioSchemaFile])
	for _, field := range []string{"scenarios", "winProbability", "seedBase"} {
		if !strings.Contains(string(scenarios), field) {
			t.Fatalf("scenario schema missing %q", field)
		}
	}
}

func TestWriteSchemaReplacesFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", frameSchemaFile)
	if err := writeSchema(out, buildSchemas()[frameSchemaFile]); err != nil {
		t.Fatalf("writeSchema: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("schema is not valid JSON")
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away")
	}
}
