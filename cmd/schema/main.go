// Command schema writes JSON schemas for the frame stream and the batch
// scenario file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"spinarena/server/internal/batch"
	"spinarena/server/internal/session"
)

const (
	frameSchemaFile    = "frame.schema.json"
	scenarioSchemaFile = "scenarios.schema.json"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory receiving the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for name, schema := range buildSchemas() {
		if err := writeSchema(filepath.Join(outDir, name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	frame := reflector.Reflect(new(session.Frame))
	frame.Title = "Spin Arena Frame"
	frame.Description = "Round snapshot streamed over /ws and returned by the REST API"

	scenarios := reflector.Reflect(new(batch.ScenarioFile))
	scenarios.Title = "Spin Arena Batch Scenarios"
	scenarios.Description = "Scenario file consumed by cmd/simulate"

	return map[string]*jsonschema.Schema{
		frameSchemaFile:    frame,
		scenarioSchemaFile: scenarios,
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
