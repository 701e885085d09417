package utils

import "testing"

type envelope struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestSmartParse_StandardJSON(t *testing.T) {
	var e envelope
	if err := SmartParse(`{"name":"a","n":1}`, &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != "a" || e.N != 1 {
		t.Fatalf("unexpected result: %+v", e)
	}
}

func TestSmartParse_RepairsTrailingCommaAndSingleQuotes(t *testing.T) {
	var e envelope
	if err := SmartParse(`{'name': 'a', 'n': 2,}`, &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != "a" || e.N != 2 {
		t.Fatalf("unexpected result: %+v", e)
	}
}

func TestSmartParse_FallsBackToHJSON(t *testing.T) {
	var e envelope
	if err := SmartParse("{\n  name: a\n  n: 3\n}", &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != "a" || e.N != 3 {
		t.Fatalf("unexpected result: %+v", e)
	}
}

func TestSmartParse_ReturnsErrorWhenNothingWorks(t *testing.T) {
	var e envelope
	if err := SmartParse("not json at all !!!", &e); err == nil {
		t.Fatal("expected an error")
	}
}
