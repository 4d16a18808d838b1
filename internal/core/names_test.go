package core

import "testing"

func TestNameKeyFoldsUnicode(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{"Food", "FOOD", true},
		{"Épicerie", "épicerie", true},
		{"Zoë", "ZOË", true},
		{"Straße", "STRASSE", true},
		{" Gas ", "gas", true},
		{"Gas", "Gasoline", false},
		{"Café", "Cafe", false},
	}
	for _, tc := range cases {
		if got := SameName(tc.a, tc.b); got != tc.same {
			t.Errorf("SameName(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.same)
		}
	}
}
