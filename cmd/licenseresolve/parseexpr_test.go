package main

import "testing"

func TestParseExprLeaf(t *testing.T) {
	e, err := parseExpr("MIT")
	if err != nil {
		t.Fatalf("parseExpr: %v", err)
	}
	if e.String() != "MIT" {
		t.Errorf("got %q, want %q", e.String(), "MIT")
	}
}

func TestParseExprAndOrPrecedence(t *testing.T) {
	e, err := parseExpr("MIT AND BSD-3-Clause OR Apache-2.0")
	if err != nil {
		t.Fatalf("parseExpr: %v", err)
	}
	// AND binds tighter than OR: (MIT AND BSD-3-Clause) OR Apache-2.0.
	want := "MIT AND BSD-3-Clause OR Apache-2.0"
	if e.String() != want {
		t.Errorf("got %q, want %q", e.String(), want)
	}
}

func TestParseExprParensOverridePrecedence(t *testing.T) {
	e, err := parseExpr("MIT AND (BSD-3-Clause OR Apache-2.0)")
	if err != nil {
		t.Fatalf("parseExpr: %v", err)
	}
	want := "MIT AND (BSD-3-Clause OR Apache-2.0)"
	if e.String() != want {
		t.Errorf("got %q, want %q", e.String(), want)
	}
}

func TestParseExprWith(t *testing.T) {
	e, err := parseExpr("GPL-2.0 WITH Classpath-exception-2.0")
	if err != nil {
		t.Fatalf("parseExpr: %v", err)
	}
	want := "GPL-2.0 WITH Classpath-exception-2.0"
	if e.String() != want {
		t.Errorf("got %q, want %q", e.String(), want)
	}
}

func TestParseExprEmptyIsError(t *testing.T) {
	if _, err := parseExpr(""); err == nil {
		t.Error("expected an error for an empty expression")
	}
}

func TestParseExprUnbalancedParensIsError(t *testing.T) {
	if _, err := parseExpr("(MIT AND Apache-2.0"); err == nil {
		t.Error("expected an error for an unbalanced parenthesis")
	}
}

func TestParseExprTrailingTokensIsError(t *testing.T) {
	if _, err := parseExpr("MIT )"); err == nil {
		t.Error("expected an error for unexpected trailing tokens")
	}
}
