package pipeline

import "testing"

func TestDedupWindow_ExactRepeat(t *testing.T) {
	w := NewDedupWindow(5, 0.9)
	w.Remember("The transformer is rated at 400 kV.")

	if !w.IsDuplicate("The transformer is rated at 400 kV.") {
		t.Fatal("exact repeat should be a duplicate")
	}
	if !w.IsDuplicate("the transformer is rated at 400 kv") {
		t.Fatal("repeat differing only in case and punctuation should be a duplicate")
	}
}

func TestDedupWindow_NearRepeat(t *testing.T) {
	w := NewDedupWindow(5, 0.9)
	w.Remember("We will check the substation readings tomorrow morning.")

	if !w.IsDuplicate("We will check the substation readings tomorrow morning") {
		t.Fatal("near-identical line should be a duplicate")
	}
}

func TestDedupWindow_DistinctLinesPass(t *testing.T) {
	w := NewDedupWindow(5, 0.9)
	w.Remember("The transformer is rated at 400 kV.")

	if w.IsDuplicate("Please send the maintenance report before Friday.") {
		t.Fatal("unrelated line flagged as duplicate")
	}
}

func TestDedupWindow_OnlyEmissionsAdvanceWindow(t *testing.T) {
	w := NewDedupWindow(2, 0.9)
	w.Remember("line one here")
	w.Remember("line two here")

	// Probing with duplicates must not evict history.
	for i := 0; i < 10; i++ {
		w.IsDuplicate("line one here")
	}
	if !w.IsDuplicate("line one here") {
		t.Fatal("line one should still be remembered")
	}

	// A third emission evicts the oldest of the two.
	w.Remember("a completely different third line")
	if w.IsDuplicate("line one here") {
		t.Fatal("line one should have been evicted from a size-2 window")
	}
	if !w.IsDuplicate("line two here") {
		t.Fatal("line two should still be remembered")
	}
}

func TestDedupWindow_EmptyTextIsDuplicate(t *testing.T) {
	w := NewDedupWindow(5, 0.9)
	if !w.IsDuplicate("   ") {
		t.Fatal("whitespace-only text should never be emitted")
	}
}

func TestDedupWindow_Reset(t *testing.T) {
	w := NewDedupWindow(5, 0.9)
	w.Remember("session one line")
	w.Reset()
	if w.IsDuplicate("session one line") {
		t.Fatal("window should be empty after Reset")
	}
}
