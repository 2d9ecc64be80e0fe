package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPipeline = `{
  "outputs": ["out"],
  "functions": [
    {"name": "in", "args": ["x"], "value": {"op": "var", "name": "x"}},
    {"name": "out", "args": ["x"], "value": {
      "op": "add",
      "a": {"op": "call", "func": "in", "args": [{"op": "var", "name": "x"}]},
      "b": {"op": "const", "value": 1}
    }}
  ],
  "domains": {
    "in": {"x": {"min": 0, "extent": 1024}},
    "out": {"x": {"min": 0, "extent": 1024}}
  }
}`

func writeTestPipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(path, []byte(testPipeline), 0o644); err != nil {
		t.Fatalf("write test pipeline: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := root.Execute()

	w.Close()
	os.Stdout = old
	var out bytes.Buffer
	out.ReadFrom(r)

	return buf.String() + out.String(), err
}

func TestRunCommandLowersOutput(t *testing.T) {
	path := writeTestPipeline(t)
	output, err := runCLI(t, "run", path)
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "out(") {
		t.Errorf("expected the out Provide statement in output, got: %s", output)
	}
}

func TestExplainCommandPrintsOrder(t *testing.T) {
	path := writeTestPipeline(t)
	output, err := runCLI(t, "explain", path)
	if err != nil {
		t.Fatalf("explain error: %v", err)
	}
	if !strings.Contains(output, "realization order") {
		t.Errorf("expected 'realization order' in output, got: %s", output)
	}
}

func TestValidateCommandAcceptsDefaultSchedule(t *testing.T) {
	path := writeTestPipeline(t)
	output, err := runCLI(t, "validate", path)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(output, "ok") {
		t.Errorf("expected 'ok' in output, got: %s", output)
	}
}

func TestRunCommandMissingFile(t *testing.T) {
	_, err := runCLI(t, "run", "nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing pipeline file")
	}
}
