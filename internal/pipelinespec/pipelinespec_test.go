package pipelinespec

import (
	"strings"
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
)

const sampleDoc = `{
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

func TestDecodeBuildsEnvAndMarksOutputs(t *testing.T) {
	env, outputs, domains, err := Decode(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "out" {
		t.Fatalf("unexpected outputs: %v", outputs)
	}
	if !env["out"].IsOutput {
		t.Fatal("expected out.IsOutput to be true")
	}
	if env["in"].IsOutput {
		t.Fatal("expected in.IsOutput to remain false")
	}
	if domains["in"]["x"].Extent.IntValue != 1024 {
		t.Fatalf("unexpected domain extent: %v", domains["in"]["x"].Extent)
	}
	if env["out"].Values[0].Kind != ir.Add {
		t.Fatalf("expected out's value to be an Add expr, got %v", env["out"].Values[0].Kind)
	}
}

func TestDecodeRejectsUndefinedOutput(t *testing.T) {
	doc := `{"outputs": ["missing"], "functions": []}`
	if _, _, _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Fatal("expected an error for an output that names no function")
	}
}

func TestDecodeRejectsUnknownOp(t *testing.T) {
	doc := `{"functions": [{"name":"f","args":["x"],"value":{"op":"frobnicate"}}]}`
	if _, _, _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Fatal("expected an error for an unrecognized expression op")
	}
}
