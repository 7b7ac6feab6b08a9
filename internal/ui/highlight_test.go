package ui

import "testing"

func TestOpeningFence(t *testing.T) {
	cases := []struct {
		line   string
		ok     bool
		marker string
		lang   string
	}{
		{"```go", true, "```", "go"},
		{"~~~  python extra", true, "~~~", "python"},
		{"  ````", true, "````", ""},
		{"``", false, "", ""},
		{"plain text", false, "", ""},
	}
	for _, tc := range cases {
		f, ok := openingFence(tc.line)
		if ok != tc.ok {
			t.Fatalf("%q: ok got %v want %v", tc.line, ok, tc.ok)
		}
		if f.marker != tc.marker || f.lang != tc.lang {
			t.Fatalf("%q: got %+v", tc.line, f)
		}
	}
}

func TestHighlightContentNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	input := "look\n```go\nfmt.Println(1)\n```"
	if got := highlightContent(input); got != input {
		t.Fatalf("expected passthrough with NO_COLOR, got %q", got)
	}
}

func TestHighlightContentUnclosedFence(t *testing.T) {
	input := "look\n```go\nfmt.Println(1)"
	if got := highlightContent(input); got != input {
		t.Fatalf("unclosed fence should pass through, got %q", got)
	}
}

func TestHighlightContentColorsBlock(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	input := "look\n```go\nfunc main() {}\n```\nafter"
	got := highlightContent(input)
	if got == input {
		t.Fatal("expected highlighted output")
	}
	if got[:5] != "look\n" {
		t.Fatalf("prose before fence changed: %q", got)
	}
}
