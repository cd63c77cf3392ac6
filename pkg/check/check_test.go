package check

import "testing"

func TestCommitOpenRoundTrip(t *testing.T) {
	value := [32]byte{1, 2, 3}
	blinding := [32]byte{9, 9, 9}
	c := Commit(value, blinding)
	if err := VerifyOpen(c, value, blinding); err != nil {
		t.Fatalf("expected valid opening, got %v", err)
	}
}

func TestCommitDetectsTamperedValue(t *testing.T) {
	value := [32]byte{1, 2, 3}
	blinding := [32]byte{9, 9, 9}
	c := Commit(value, blinding)
	tampered := [32]byte{1, 2, 4}
	if err := VerifyOpen(c, tampered, blinding); err == nil {
		t.Fatal("expected tampered value to fail verification")
	}
}
