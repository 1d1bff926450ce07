package main

import (
	"testing"

	"github.com/bdougie/catalog/internal/geometry"
)

func TestParseRect(t *testing.T) {
	r, err := parseRect("10, 20,30.5,40")
	if err != nil {
		t.Fatalf("parseRect returned error: %v", err)
	}
	want := geometry.Rect{Left: 10, Top: 20, Width: 30.5, Height: 40}
	if r != want {
		t.Fatalf("parseRect = %+v, want %+v", r, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,2,3,4", "1,2,0,4", "1,2,3,-4"} {
		if _, err := parseRect(bad); err == nil {
			t.Errorf("parseRect(%q) expected error", bad)
		}
	}
}

func TestOptional(t *testing.T) {
	if optional("") != nil {
		t.Fatal("empty string should map to nil")
	}
	if p := optional("box-1"); p == nil || *p != "box-1" {
		t.Fatalf("optional(box-1) = %v", p)
	}
}
