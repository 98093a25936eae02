package utils

import "testing"

type probe struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"Here is the data you asked for:\n{\"a\": 1}\nLet me know!", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("StripFences(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestSmartParseStandardJSON(t *testing.T) {
	var p probe
	if err := SmartParse(`{"name": "revenue", "value": 42.5}`, &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "revenue" || p.Value != 42.5 {
		t.Errorf("got %+v", p)
	}
}

func TestSmartParseRepairsTrailingComma(t *testing.T) {
	var p probe
	if err := SmartParse(`{"name": "revenue", "value": 42.5,}`, &p); err != nil {
		t.Fatalf("repair rung should handle trailing commas: %v", err)
	}
	if p.Value != 42.5 {
		t.Errorf("got %+v", p)
	}
}

func TestSmartParseHJSONUnquotedKeys(t *testing.T) {
	var p probe
	if err := SmartParse("{\n  name: revenue\n  value: 42.5\n}", &p); err != nil {
		t.Fatalf("hjson rung should handle unquoted keys: %v", err)
	}
	if p.Name != "revenue" || p.Value != 42.5 {
		t.Errorf("got %+v", p)
	}
}

func TestSmartParseGivesUp(t *testing.T) {
	var p probe
	if err := SmartParse("I cannot help with that request.", &p); err == nil {
		t.Error("expected an error for conversational refusals")
	}
}
