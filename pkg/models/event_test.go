package models

import (
	"encoding/json"
	"testing"
)

func TestEventAccessorsDefault(t *testing.T) {
	e := Event{
		"event": "$pageview",
		"properties": map[string]interface{}{
			"$lib":           "posthog-js",
			"count":          float64(3),
			"$is_identified": true,
			"nested":         map[string]interface{}{"rating": "good"},
			"nil":            nil,
		},
	}

	if got := e.String("event"); got != "$pageview" {
		t.Errorf("event = %q", got)
	}
	if got := e.String("missing"); got != "" {
		t.Errorf("missing = %q, want empty", got)
	}
	props := e.Properties()
	if props.Number("count") != 3 {
		t.Errorf("count = %v", props.Number("count"))
	}
	if props.Number("$lib") != 0 {
		t.Error("non-numeric value should default to 0")
	}
	if !props.Bool("$is_identified") || props.Bool("missing") {
		t.Error("bool accessor mismatch")
	}
	if props.Map("nested").String("rating") != "good" {
		t.Error("nested map lookup failed")
	}
	if len(props.Map("missing")) != 0 || len(props.Map("count")) != 0 {
		t.Error("expected empty map for missing or non-map values")
	}
	if e.Library() != "posthog-js" {
		t.Errorf("Library = %q", e.Library())
	}
}

func TestStringRendersNumbersVerbatim(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"decoded integer", json.Number("12345678"), "12345678"},
		{"decoded big integer", json.Number("9007199254740993"), "9007199254740993"},
		{"decoded fraction", json.Number("0.25"), "0.25"},
		{"float integer", float64(12345678), "12345678"},
		{"float large", float64(1234567890123), "1234567890123"},
		{"float fraction", 0.5, "0.5"},
		{"float32", float32(1.5), "1.5"},
		{"int", 42, "42"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{"distinct_id": tt.in, "properties": map[string]interface{}{"userId": tt.in}}
			if got := e.String("distinct_id"); got != tt.want {
				t.Errorf("Event.String = %q, want %q", got, tt.want)
			}
			if got := e.Properties().String("userId"); got != tt.want {
				t.Errorf("Props.String = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumberAcceptsDecodedNumbers(t *testing.T) {
	p := Props{"n": json.Number("1800000"), "bad": json.Number("x")}
	if got := p.Number("n"); got != 1800000 {
		t.Errorf("Number = %v", got)
	}
	if got := p.Number("bad"); got != 0 {
		t.Errorf("invalid number = %v, want 0", got)
	}
}

func TestEventWithoutProperties(t *testing.T) {
	e := Event{"properties": "not-a-map"}
	if e.Library() != "" {
		t.Error("expected empty library")
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{From: 1000, To: 5000}
	cases := map[int64]bool{999: false, 1000: false, 1001: true, 5000: true, 5001: false}
	for ms, want := range cases {
		if got := w.Contains(ms); got != want {
			t.Errorf("Contains(%d) = %v, want %v", ms, got, want)
		}
	}
}

func TestShapeForLibrary(t *testing.T) {
	if ShapeForLibrary("posthog-node") != ShapeServer {
		t.Error("posthog-node should map to server shape")
	}
	for _, lib := range []string{"posthog-js", "web", ""} {
		if ShapeForLibrary(lib) != ShapeBrowser {
			t.Errorf("%q should map to browser shape", lib)
		}
	}
	if SchemaFor(ShapeServer).Shape != ShapeServer || SchemaFor(ShapeBrowser).Shape != ShapeBrowser {
		t.Error("SchemaFor returned the wrong schema")
	}
}
