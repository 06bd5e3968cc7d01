package chunking

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindHeadersMatchesLineStartsOnly(t *testing.T) {
	ps := DefaultPatterns()
	text := "Intro prose mentioning exercise 3.1 inline.\nEXERCISE 3.1\nBody."

	headers := ps.findHeaders(text)
	if len(headers) != 1 {
		t.Fatalf("expected 1 header, got %d: %+v", len(headers), headers)
	}
	h := headers[0]
	if h.family != familyExercise || h.label != "3.1" {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.start == 0 {
		t.Fatalf("inline mention matched as header")
	}
}

func TestFindHeadersSortedByOffset(t *testing.T) {
	ps := DefaultPatterns()
	text := "CHAPTER 2: Sets\n2.1 Subsets And Supersets\nExample 1\nBody text."

	headers := ps.findHeaders(text)
	if len(headers) != 3 {
		t.Fatalf("expected 3 headers, got %d: %+v", len(headers), headers)
	}
	for i := 1; i < len(headers); i++ {
		if headers[i].start < headers[i-1].start {
			t.Fatalf("headers unsorted: %+v", headers)
		}
	}
	if headers[0].family != familyChapter || headers[1].family != familySection || headers[2].family != familyExample {
		t.Fatalf("unexpected family order: %+v", headers)
	}
	if headers[0].title != "Sets" {
		t.Fatalf("chapter title = %q, want Sets", headers[0].title)
	}
	if headers[1].title != "Subsets And Supersets" {
		t.Fatalf("section title = %q", headers[1].title)
	}
}

func TestFindHeadersCaseInsensitiveFamilies(t *testing.T) {
	ps := DefaultPatterns()
	headers := ps.findHeaders("Chapter 5 - Continuity\nexample 2\nbody")
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %d: %+v", len(headers), headers)
	}
	if headers[0].family != familyChapter || headers[0].label != "5" {
		t.Fatalf("unexpected chapter header: %+v", headers[0])
	}
	if headers[1].family != familyExample || headers[1].label != "2" {
		t.Fatalf("unexpected example header: %+v", headers[1])
	}
}

func TestLoadPatternsOverridesSingleFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	content := "exercise:\n  - '(?im)^[ \\t]*ABUNGAN\\s+(\\d+\\.\\d+)'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	ps, err := LoadPatterns(path)
	if err != nil {
		t.Fatalf("LoadPatterns: %v", err)
	}

	headers := ps.findHeaders("ABUNGAN 1.2\nBody.")
	if len(headers) != 1 || headers[0].family != familyExercise || headers[0].label != "1.2" {
		t.Fatalf("override not applied: %+v", headers)
	}
	if got := ps.findHeaders("EXERCISE 1.2\nBody."); len(got) != 0 {
		t.Fatalf("default exercise pattern survived the override: %+v", got)
	}
	if got := ps.findHeaders("CHAPTER 1: Sets\n"); len(got) != 1 {
		t.Fatalf("untouched family lost its default: %+v", got)
	}
}

func TestLoadPatternsRejectsBadRegexp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte("example:\n  - '(unclosed'\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPatterns(path); err == nil {
		t.Fatal("expected a compile error")
	}
}
