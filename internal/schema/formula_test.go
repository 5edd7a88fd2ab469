package schema

import (
	"strings"
	"testing"
)

func TestHillFormula(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "methane", input: "[{'C': '1', 'H': '4'}]", want: "CH4"},
		{name: "copper oxide alphabetical", input: "[{'O': '1', 'Cu': '1'}]", want: "CuO"},
		{name: "spinel", input: "[{'Li': '1.0', 'Mn': '2.0', 'O': '4.0'}]", want: "LiMn2O4"},
		{name: "double quotes", input: `[{"Li": "1", "Fe": "1", "P": "1", "O": "4"}]`, want: "FeLiO4P"},
		{name: "bare coefficients", input: "[{Li: 1, O: 2}]", want: "LiO2"},
		{name: "fractional count", input: "[{'Li': '0.5', 'O': '1'}]", want: "Li0.5O"},
		{name: "variable token renders bare", input: "[{'Li': 'x', 'Mn': '2', 'O': '4'}]", want: "LiMn2O4"},
		{name: "groups merge", input: "[{'Li': '1'}, {'Li': '1', 'O': '1'}]", want: "Li2O"},
		{name: "decoded mapping", input: map[string]any{"Na": 1.0, "Cl": 1.0}, want: "ClNa"},
		{name: "decoded list", input: []any{map[string]any{"Si": 1.0, "O": 2.0}}, want: "O2Si"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comp, ok := ParseComposition(tc.input)
			if !ok {
				t.Fatalf("composition did not parse")
			}
			got := HillFormula(comp)
			if got == nil {
				t.Fatalf("formula is nil")
			}
			if *got != tc.want {
				t.Fatalf("got %q want %q", *got, tc.want)
			}
		})
	}
}

func TestParseCompositionMalformed(t *testing.T) {
	inputs := []any{
		"",
		"LiMn2O4",
		"[{'Li': }]",
		"[{'NotAnElement': '1'}]",
		"[{'li': '1'}]",
		"[]",
		"[{}]",
		42,
		[]any{"Li"},
	}
	for _, input := range inputs {
		if comp, ok := ParseComposition(input); ok {
			t.Fatalf("input %v unexpectedly parsed: %v", input, comp)
		}
	}
}

func TestElementList(t *testing.T) {
	comp, ok := ParseComposition("[{'O': '4', 'Mn': '2', 'Li': '1'}, {'C': 'x'}]")
	if !ok {
		t.Fatal("composition did not parse")
	}
	got := ElementList(comp)
	want := []string{"C", "Li", "Mn", "O"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestHillFormulaEmpty(t *testing.T) {
	if got := HillFormula(nil); got != nil {
		t.Fatalf("got %q want nil", *got)
	}
}
