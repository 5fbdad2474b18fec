package action

import "testing"

func TestNormalizeXURL(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"absolute url unchanged", "https://x.com/acme/status/111", "https://x.com/acme/status/111"},
		{"absolute url strips query", "https://x.com/acme/status/111?s=20&t=abc", "https://x.com/acme/status/111"},
		{"root-relative path", "/acme/status/111", "https://x.com/acme/status/111"},
		{"root-relative strips query", "/acme/status/111?s=20", "https://x.com/acme/status/111"},
		{"bare relative path", "acme/status/111", "https://x.com/acme/status/111"},
		{"trims surrounding whitespace", "  /acme/status/111  ", "https://x.com/acme/status/111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeXURL(tt.href); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name        string
		v, min, max int
		want        int
	}{
		{"within range", 5, 1, 10, 5},
		{"below min", -3, 1, 10, 1},
		{"above max", 50, 1, 10, 10},
		{"equal to min", 1, 1, 10, 1},
		{"equal to max", 10, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.v, tt.min, tt.max); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		name          string
		params        map[string]any
		key           string
		def, min, max int
		want          int
	}{
		{"missing key uses default", map[string]any{}, "max_candidates", 20, 1, 200, 20},
		{"float64 from json", map[string]any{"max_candidates": float64(35)}, "max_candidates", 20, 1, 200, 35},
		{"int value", map[string]any{"max_candidates": 35}, "max_candidates", 20, 1, 200, 35},
		{"string value parses", map[string]any{"max_candidates": "35"}, "max_candidates", 20, 1, 200, 35},
		{"unparseable string falls back to default", map[string]any{"max_candidates": "abc"}, "max_candidates", 20, 1, 200, 20},
		{"wrong type falls back to default", map[string]any{"max_candidates": true}, "max_candidates", 20, 1, 200, 20},
		{"clamps above max", map[string]any{"max_candidates": float64(9999)}, "max_candidates", 20, 1, 200, 200},
		{"clamps below min", map[string]any{"max_candidates": float64(-5)}, "max_candidates", 20, 1, 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intParam(tt.params, tt.key, tt.def, tt.min, tt.max); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStringParam(t *testing.T) {
	if got := stringParam(map[string]any{"text": "hello"}, "text"); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := stringParam(map[string]any{}, "text"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := stringParam(map[string]any{"text": 42}, "text"); got != "" {
		t.Errorf("got %q, want empty for non-string value", got)
	}
}

func TestInSet(t *testing.T) {
	s := set("a", "b")
	if !inSet(s, "a") {
		t.Error("expected a to be in set")
	}
	if inSet(s, "c") {
		t.Error("expected c not to be in set")
	}
}

func TestTweetIDFromHref(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/acme/status/123456", "123456"},
		{"https://x.com/acme/status/987654321?s=20", "987654321"},
		{"/acme/photo", ""},
	}
	for _, tt := range tests {
		m := tweetIDFromHref.FindStringSubmatch(tt.href)
		if tt.want == "" {
			if m != nil {
				t.Errorf("href %q: expected no match, got %v", tt.href, m)
			}
			continue
		}
		if m == nil || m[1] != tt.want {
			t.Errorf("href %q: got %v, want tweet id %q", tt.href, m, tt.want)
		}
	}
}

func TestUnsupportedPlatformResults(t *testing.T) {
	results := unsupportedPlatformResults("instagram", 3)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Status != "failed" {
			t.Errorf("got status %q, want failed", r.Status)
		}
	}
}

func TestBrowserErrorResults(t *testing.T) {
	results := browserErrorResults(2, "boom")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Message != "boom" {
			t.Errorf("got message %q, want boom", r.Message)
		}
	}
}
