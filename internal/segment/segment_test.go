package segment

import (
	"strings"
	"testing"
)

func TestFragments_Empty(t *testing.T) {
	if frags := Fragments("", 2000); frags != nil {
		t.Errorf("expected nil for empty content, got %d fragments", len(frags))
	}
}

func TestFragments_UnderLimit(t *testing.T) {
	frags := Fragments("short note", 2000)
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0] != "short note" {
		t.Errorf("fragment = %q", frags[0])
	}
}

func TestFragments_RoundTrip(t *testing.T) {
	inputs := []string{
		strings.Repeat("The market shifted today. ", 400),
		strings.Repeat("para one\n\npara two\n\n", 300),
		strings.Repeat("слово и ещё слово. ", 500), // multi-byte runes
		strings.Repeat("x", 4500),                  // no breaks at all
	}

	for _, in := range inputs {
		frags := Fragments(in, 1000)
		if got := strings.Join(frags, ""); got != in {
			t.Errorf("round trip failed for input of %d runes", len([]rune(in)))
		}
		for i, f := range frags {
			if n := len([]rune(f)); n > 1000 {
				t.Errorf("fragment %d has %d runes, want <= 1000", i, n)
			}
		}
	}
}

func TestFragments_PrefersParagraphBreak(t *testing.T) {
	// A paragraph break sits 30 runes before the limit; a later period sits
	// 10 runes before it. The paragraph break must win.
	head := strings.Repeat("a", 166) + "\n\n" + strings.Repeat("b", 20) + ". " + strings.Repeat("c", 50)
	frags := Fragments(head, 200)

	if len(frags) < 2 {
		t.Fatalf("expected a split, got %d fragments", len(frags))
	}
	if !strings.HasSuffix(frags[0], "\n\n") {
		t.Errorf("expected first fragment to end on paragraph break, got %q", tail(frags[0]))
	}
}

func TestFragments_FallsBackToSentence(t *testing.T) {
	content := strings.Repeat("a", 150) + ". " + strings.Repeat("b", 100)
	frags := Fragments(content, 200)

	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if !strings.HasSuffix(frags[0], ".") {
		t.Errorf("expected first fragment to end on period, got %q", tail(frags[0]))
	}
}

func TestFragments_FallsBackToWhitespace(t *testing.T) {
	content := strings.Repeat("a", 150) + " " + strings.Repeat("b", 100)
	frags := Fragments(content, 200)

	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if !strings.HasSuffix(frags[0], " ") {
		t.Errorf("expected first fragment to end on whitespace, got %q", tail(frags[0]))
	}
	if !strings.HasPrefix(frags[1], "b") {
		t.Errorf("second fragment should start the next word, got %q", frags[1][:10])
	}
}

func TestFragments_HardCutWithoutBreaks(t *testing.T) {
	content := strings.Repeat("z", 450)
	frags := Fragments(content, 200)

	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frags))
	}
	if len(frags[0]) != 200 || len(frags[1]) != 200 || len(frags[2]) != 50 {
		t.Errorf("unexpected fragment sizes: %d, %d, %d", len(frags[0]), len(frags[1]), len(frags[2]))
	}
}

func TestTruncate_UnderCeiling(t *testing.T) {
	out, truncated := Truncate("small signal", "https://example.com/a", 10000)
	if truncated {
		t.Error("expected no truncation under ceiling")
	}
	if out != "small signal" {
		t.Errorf("content modified: %q", out)
	}
}

func TestTruncate_OverCeiling(t *testing.T) {
	url := "https://example.com/long-read"
	content := strings.Repeat("Data points keep arriving. ", 500) // ~13500 runes

	out, truncated := Truncate(content, url, 10000)
	if !truncated {
		t.Fatal("expected truncation over ceiling")
	}
	if !strings.Contains(out, url) {
		t.Error("truncation notice missing source url")
	}
	if !strings.HasSuffix(out, "]") {
		t.Errorf("expected notice at end, got %q", tail(out))
	}

	marker := len([]rune("\n\n[Content truncated. Full source: " + url + "]"))
	if n := len([]rune(out)); n > 10000+marker {
		t.Errorf("truncated content is %d runes, want <= %d", n, 10000+marker)
	}

	// The cut itself lands on a sentence break, not inside a word.
	body := strings.TrimSuffix(out, "\n\n[Content truncated. Full source: "+url+"]")
	if !strings.HasSuffix(body, ". ") && !strings.HasSuffix(body, ".") {
		t.Errorf("expected body to end on a sentence, got %q", tail(body))
	}
}

func TestClip(t *testing.T) {
	content := strings.Repeat("word after word. ", 100)

	if got := Clip(content, 100000); got != content {
		t.Error("clip below cap should return content unchanged")
	}

	clipped := Clip(content, 500)
	if n := len([]rune(clipped)); n > 500 {
		t.Errorf("clipped to %d runes, want <= 500", n)
	}
	if !strings.HasPrefix(content, clipped) {
		t.Error("clip must be a prefix of the original")
	}
	if !strings.HasSuffix(clipped, ".") && !strings.HasSuffix(clipped, " ") {
		t.Errorf("clip landed mid-word: %q", tail(clipped))
	}
}

func tail(s string) string {
	r := []rune(s)
	if len(r) <= 20 {
		return s
	}
	return string(r[len(r)-20:])
}
