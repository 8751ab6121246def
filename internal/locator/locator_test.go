package locator

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePart(t *testing.T) {
	tests := []struct {
		raw  string
		want Part
	}{
		{"dandan:1001", Part{Source: "dandan", ID: "1001"}},
		{"Bilibili:ep:334", Part{Source: "bilibili", ID: "ep:334"}},
		{"https://example.com/v/1", Part{ID: "https://example.com/v/1"}},
		{"1001", Part{ID: "1001"}},
		{"9x:1", Part{ID: "9x:1"}},
	}
	for _, tt := range tests {
		if got := ParsePart(tt.raw); got != tt.want {
			t.Fatalf("ParsePart(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseCompound(t *testing.T) {
	parts, err := Parse("1001$$$bilibili:ep334$$$fixture:a/b", "dandan")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Part{
		{Source: "dandan", ID: "1001"},
		{Source: "bilibili", ID: "ep334"},
		{Source: "fixture", ID: "a/b"},
	}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("Parse = %+v, want %+v", parts, want)
	}
	if !IsCompound("a:1$$$b:2") || IsCompound("a:1") {
		t.Fatal("IsCompound mismatch")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("  ", ""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Parse("1001", ""); err == nil {
		t.Fatal("expected error for part without source")
	}
	if _, err := Parse("dandan:", ""); err == nil {
		t.Fatal("expected error for part without id")
	}
}

func TestAppendNamespacesPrimary(t *testing.T) {
	loc := Append("1001", "dandan", Part{Source: "bilibili", ID: "ep1"})
	if loc != "dandan:1001$$$bilibili:ep1" {
		t.Fatalf("unexpected locator %q", loc)
	}
	loc = Append(loc, "dandan", Part{Source: "fixture", ID: "x"})
	if loc != "dandan:1001$$$bilibili:ep1$$$fixture:x" {
		t.Fatalf("unexpected locator %q", loc)
	}
	if got := Append("dandan:5", "dandan", Part{Source: "b", ID: "1"}); got != "dandan:5$$$b:1" {
		t.Fatalf("already namespaced primary rewritten: %q", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	parts := []Part{{Source: "a", ID: "1"}, {Source: "b", ID: "2"}}
	loc := Format(parts...)
	got, err := Parse(loc, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got, parts) {
		t.Fatalf("round trip = %+v", got)
	}
	if sources := Sources(loc+"$$$a:3", ""); !reflect.DeepEqual(sources, []string{"a", "b"}) {
		t.Fatalf("Sources = %v", sources)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("ep$$$1"); err == nil {
		t.Fatal("expected delimiter rejection")
	}
	if err := Validate(""); err == nil {
		t.Fatal("expected empty rejection")
	}
	if err := Validate("ep1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
