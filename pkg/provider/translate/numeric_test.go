package translate

import "testing"

func TestNumericTokens(t *testing.T) {
	got := NumericTokens("The line runs at 400 kV with 1,5 kA peaks over 2.5 ms")
	want := []string{"400 kV", "1,5 kA", "2.5 ms"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMissingNumbers_AllPresent(t *testing.T) {
	missing := MissingNumbers(
		"The transformer is rated 630 MVA at 110 kV.",
		"El transformador está dimensionado a 630 MVA a 110 kV.")
	if len(missing) != 0 {
		t.Fatalf("missing = %v, want none", missing)
	}
}

func TestMissingNumbers_DecimalSeparatorIsNotLoss(t *testing.T) {
	missing := MissingNumbers("a gap of 2.5 mm2", "una brecha de 2,5 mm2")
	if len(missing) != 0 {
		t.Fatalf("missing = %v; decimal comma should match decimal point", missing)
	}
}

func TestMissingNumbers_DetectsDroppedValue(t *testing.T) {
	missing := MissingNumbers(
		"Set the relay to 50 Hz and 230 V.",
		"Ajusta el relé a 50 Hz.")
	if len(missing) != 1 || missing[0] != "230 V" {
		t.Fatalf("missing = %v, want [230 V]", missing)
	}
}

func TestMissingNumbers_CountsRepeats(t *testing.T) {
	missing := MissingNumbers("10 plus 10 equals 20", "10 es igual a 20")
	if len(missing) != 1 {
		t.Fatalf("missing = %v; a repeated value must appear as often as in the source", missing)
	}
}

func TestIsRefusal(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I can't translate that content.", true},
		{"Lo siento, no puedo ayudar con eso.", true},
		{"As an AI language model, I must decline.", true},
		{"No puedo ayudarte con eso.", true},
		{"La reunión empieza a las tres.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsRefusal(tc.text); got != tc.want {
			t.Errorf("IsRefusal(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestLooksSpanish(t *testing.T) {
	if !LooksSpanish("La tensión de la red es una de las más altas en el sistema") {
		t.Fatal("clearly Spanish sentence not detected")
	}
	if LooksSpanish("The grid voltage is among the highest in the system") {
		t.Fatal("English sentence misdetected as Spanish")
	}
	// Short fragments with few markers stay below the threshold.
	if LooksSpanish("de facto the answer is no") {
		t.Fatal("isolated loanwords should not trip the heuristic")
	}
}
