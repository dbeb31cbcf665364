package i18n

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", LangEnglish},
		{"en-US", LangEnglish},
		{"am", LangAmharic},
		{"am-ET", LangAmharic},
		{"", LangEnglish},
		{"fr", LangEnglish},
		{"not-a-code!!", LangEnglish},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			if got := Detect(tc.code); got != tc.want {
				t.Fatalf("Detect(%q) = %q, want %q", tc.code, got, tc.want)
			}
		})
	}
}

func TestTFormatsArguments(t *testing.T) {
	got := T(LangEnglish, "balance", 3, 1)
	if got != "Your balance: 3 image credits, 1 video credits." {
		t.Fatalf("T(balance) = %q", got)
	}
}

func TestTFallsBackToEnglish(t *testing.T) {
	if got := T("fr", "help"); got != catalog[LangEnglish]["help"] {
		t.Fatalf("unsupported language should fall back to English, got %q", got)
	}
	if got := T(LangEnglish, "no_such_key"); got != "no_such_key" {
		t.Fatalf("missing key should render as the key, got %q", got)
	}
}

func TestCatalogsCoverSameKeys(t *testing.T) {
	for key := range catalog[LangEnglish] {
		if _, ok := catalog[LangAmharic][key]; !ok {
			t.Errorf("amharic catalog missing key %q", key)
		}
	}
	for key := range catalog[LangAmharic] {
		if _, ok := catalog[LangEnglish][key]; !ok {
			t.Errorf("english catalog missing key %q", key)
		}
	}
}

func TestCompletionMessageCarriesKeyword(t *testing.T) {
	// The progress throttle lets messages through unconditionally when they
	// announce completion; the catalog entry must keep that keyword.
	if !strings.Contains(strings.ToLower(T(LangEnglish, "video_complete")), "complete") {
		t.Fatal("english video_complete must contain the word complete")
	}
}
