package util

import "testing"

func TestCleanModelText(t *testing.T) {
	cases := map[string]string{
		`"Just shipped my first app!"`: "Just shipped my first app!",
		"Post: 'dreaming of Lisbon'":   "dreaming of Lisbon",
		"  no quotes here  ":           "no quotes here",
		`Comment: "love this energy"`:  "love this energy",
	}
	for in, want := range cases {
		if got := CleanModelText(in); got != want {
			t.Fatalf("CleanModelText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanJSON(t *testing.T) {
	in := "Sure! ```json\n{\"prompt\":\"a cafe\"}\n```"
	if got := CleanJSON(in); got != `{"prompt":"a cafe"}` {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo…" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
}
