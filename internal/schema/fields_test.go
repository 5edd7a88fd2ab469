package schema

import "testing"

func TestResolveAliases(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "Name", want: "material_name"},
		{input: "material name", want: "material_name"},
		{input: "Extracted_name", want: "extracted_name"},
		{input: "DOI", want: "doi"},
		{input: "Capacity_Raw_value", want: "capacity_raw_value"},
		{input: "capacity raw value", want: "capacity_raw_value"},
		{input: "CAPACITY-RAW-VALUE", want: "capacity_raw_value"},
		{input: "Capacity_Value", want: "capacity"},
		{input: "Capacity", want: "capacity"},
		{input: "Coulombic Efficiency_Raw_unit", want: "coulombic_efficiency_raw_unit"},
		{input: "Publication Year", want: "date"},
		{input: "Type", want: "material_type"},
	}

	for _, tc := range cases {
		got, ok := Resolve(tc.input)
		if !ok {
			t.Fatalf("%q did not resolve", tc.input)
		}
		if got != tc.want {
			t.Fatalf("%q resolved to %q want %q", tc.input, got, tc.want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, input := range []string{"", "random_column", "temperature"} {
		if got, ok := Resolve(input); ok {
			t.Fatalf("%q unexpectedly resolved to %q", input, got)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "Capacity_Raw_value", want: "capacity_raw_value"},
		{input: "  Energy Density--Raw unit ", want: "energy_density_raw_unit"},
		{input: "DOI", want: "doi"},
		{input: "__name__", want: "name"},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.input); got != tc.want {
			t.Fatalf("NormalizeKey(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}
