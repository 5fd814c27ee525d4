package spdxexpr

import "testing"

func TestDecomposeIdempotent(t *testing.T) {
	expr := Or(And(Leaf("MIT"), Leaf("Apache-2.0")), With(Leaf("GPL-2.0").License, "Classpath-exception-2.0"))

	leaves := Decompose(expr)
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d: %v", len(leaves), leaves)
	}

	folded := ToExpression(leaves, OpAnd)
	again := Decompose(folded)
	if len(again) != len(leaves) {
		t.Fatalf("decompose not idempotent: got %d leaves after re-fold, want %d", len(again), len(leaves))
	}
	for i := range leaves {
		if leaves[i].String() != again[i].String() {
			t.Errorf("leaf %d changed: %q != %q", i, leaves[i].String(), again[i].String())
		}
	}
}

func TestToExpressionEmpty(t *testing.T) {
	if e := ToExpression(nil, OpAnd); e != nil {
		t.Errorf("expected nil for empty input, got %v", e)
	}
}

func TestApplyChoicesAndValidChoices(t *testing.T) {
	expr := And(Or(Leaf("MIT"), Leaf("Apache-2.0")), Leaf("BSD-3-Clause"))

	choices := ValidChoices(expr)
	if len(choices) != 2 {
		t.Fatalf("expected 2 valid choices, got %d: %v", len(choices), choices)
	}

	resolved, err := ApplyChoices(expr, []Choice{
		{Given: Or(Leaf("MIT"), Leaf("Apache-2.0")), Chosen: Leaf("MIT")},
	})
	if err != nil {
		t.Fatalf("ApplyChoices: %v", err)
	}
	if resolved.String() != "MIT AND BSD-3-Clause" {
		t.Errorf("got %q", resolved.String())
	}
}

func TestApplyChoicesInvalid(t *testing.T) {
	expr := Leaf("MIT")
	_, err := ApplyChoices(expr, []Choice{{Given: Or(Leaf("MIT"), Leaf("Apache-2.0")), Chosen: Leaf("MIT")}})
	if err == nil {
		t.Fatal("expected error for a choice that doesn't match any OR sub-expression")
	}
	if _, ok := err.(*ErrInvalidLicenseChoice); !ok {
		t.Errorf("expected *ErrInvalidLicenseChoice, got %T", err)
	}
}

func TestEqualIgnoresAndOrder(t *testing.T) {
	a := And(Leaf("MIT"), Leaf("Apache-2.0"))
	b := And(Leaf("Apache-2.0"), Leaf("MIT"))
	if !Equal(a, b) {
		t.Errorf("expected AND to be commutative for Equal")
	}

	c := Or(Leaf("MIT"), Leaf("Apache-2.0"))
	d := Or(Leaf("Apache-2.0"), Leaf("MIT"))
	if Equal(c, d) {
		t.Errorf("expected OR not to be treated as commutative by Equal")
	}
}
