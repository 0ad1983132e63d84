package jsonrepair

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustRepair(t *testing.T, raw string) string {
	t.Helper()
	out, err := Repair(raw)
	if err != nil {
		t.Fatalf("Repair(%q) failed: %v", raw, err)
	}
	return out
}

func TestRepairIdempotentOnValidJSON(t *testing.T) {
	valid := `{"issues":["a","b"],"method":["x"]}`
	first := mustRepair(t, valid)
	if first != valid {
		t.Fatalf("valid JSON changed: %q", first)
	}
	second := mustRepair(t, first)
	if second != first {
		t.Fatalf("not idempotent: %q vs %q", second, first)
	}
}

func TestRepairStripsFences(t *testing.T) {
	cases := map[string]string{
		"json fence":  "```json\n{\"a\":1}\n```",
		"plain fence": "```\n{\"a\":1}\n```",
		"upper fence": "```JSON\n{\"a\":1}\n```",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			out := mustRepair(t, raw)
			if out != `{"a":1}` {
				t.Fatalf("got %q", out)
			}
		})
	}
}

func TestRepairStripsExactlyOneFencePair(t *testing.T) {
	// inner fence is part of the payload string and must survive
	raw := "```json\n{\"a\":\"``` nested ```\"}\n```"
	out := mustRepair(t, raw)
	var doc map[string]string
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if doc["a"] != "``` nested ```" {
		t.Fatalf("inner fence mangled: %q", doc["a"])
	}
}

func TestRepairTrailingComma(t *testing.T) {
	out := mustRepair(t, `[{"a":1},{"a":2},]`)
	var arr []map[string]int
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(arr))
	}
}

func TestRepairTruncatedArray(t *testing.T) {
	out := mustRepair(t, `[{"a":1},{"a":2},{"a":3`)
	var arr []map[string]int
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("expected incomplete element dropped, got %d elements", len(arr))
	}
	if arr[1]["a"] != 2 {
		t.Fatalf("unexpected content: %+v", arr)
	}
}

func TestRepairDanglingComma(t *testing.T) {
	out := mustRepair(t, `[{"a":1},{"a":2},`)
	var arr []map[string]int
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(arr))
	}
}

func TestRepairExtractsEmbeddedDocument(t *testing.T) {
	raw := "Here is the result you asked for:\n\n{\"score\": 7, \"why\": \"solid\"}\n\nLet me know."
	out := mustRepair(t, raw)
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if doc["score"].(float64) != 7 {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestRepairExtractsObjectDespiteStrayBrace(t *testing.T) {
	// a stray closing brace later in the prose must not extend the match
	// past the first balanced object
	raw := "Result: {\"score\": 7} and that concludes the analysis }"
	out := mustRepair(t, raw)
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if doc["score"].(float64) != 7 {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestRepairBraceTrackingIgnoresQuotedBraces(t *testing.T) {
	// the "}" and "{" inside string values must not confuse the scanner
	out := mustRepair(t, `[{"a":"x}y"},{"b":"{"},{"c":tru`)
	var arr []map[string]string
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("output not parseable: %v", err)
	}
	if len(arr) != 2 || arr[0]["a"] != "x}y" || arr[1]["b"] != "{" {
		t.Fatalf("unexpected content: %+v", arr)
	}
}

func TestRepairFailureCarriesPreview(t *testing.T) {
	_, err := Repair("completely free-form prose with no structure at all")
	if err == nil {
		t.Fatal("expected error")
	}
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *jsonrepair.Error, got %T", err)
	}
	if re.Preview == "" {
		t.Fatal("expected non-empty preview")
	}
}

func TestRepairPreviewBounded(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := Repair(string(long))
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *jsonrepair.Error, got %T", err)
	}
	if len(re.Preview) > previewLimit+3 {
		t.Fatalf("preview too long: %d", len(re.Preview))
	}
}
