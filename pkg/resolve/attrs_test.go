package resolve

import "testing"

func TestCompareCustomAttributes(t *testing.T) {
	cases := []struct {
		name string
		have map[string]any
		want map[string]any
		eq   bool
	}{
		{"both empty", nil, nil, true},
		{"both empty maps", map[string]any{}, map[string]any{}, true},
		{"exact", map[string]any{"a": "x"}, map[string]any{"a": "x"}, true},
		{"loose number", map[string]any{"n": float64(1)}, map[string]any{"n": 1}, true},
		{"loose string number", map[string]any{"n": "1"}, map[string]any{"n": 1}, true},
		{"different value", map[string]any{"a": "x"}, map[string]any{"a": "y"}, false},
		{"superset", map[string]any{"a": "x", "b": "y"}, map[string]any{"a": "x"}, false},
		{"missing key", map[string]any{"a": "x"}, map[string]any{"b": "x"}, false},
		{"empty vs non-empty", map[string]any{}, map[string]any{"a": "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompareCustomAttributes(tc.have, tc.want); got != tc.eq {
				t.Errorf("CompareCustomAttributes(%v, %v) = %v, want %v", tc.have, tc.want, got, tc.eq)
			}
		})
	}
}

func TestLooseEqual(t *testing.T) {
	if !looseEqual(1.5, "1.5") {
		t.Error("1.5 should loosely equal \"1.5\"")
	}
	if !looseEqual(true, "true") {
		t.Error("true should loosely equal \"true\"")
	}
	if looseEqual(nil, "nil") {
		t.Error("nil should not loosely equal the string \"nil\"")
	}
}
