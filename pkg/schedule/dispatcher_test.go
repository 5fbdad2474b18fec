package schedule

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseAccountIDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	tests := []struct {
		name     string
		selector map[string]any
		want     []uuid.UUID
	}{
		{"no ids key", map[string]any{}, nil},
		{"empty ids list", map[string]any{"ids": []any{}}, nil},
		{"valid ids", map[string]any{"ids": []any{a.String(), b.String()}}, []uuid.UUID{a, b}},
		{"skips non-string entries", map[string]any{"ids": []any{a.String(), 42, nil}}, []uuid.UUID{a}},
		{"skips unparseable uuids", map[string]any{"ids": []any{"not-a-uuid", b.String()}}, []uuid.UUID{b}},
		{"all entries unparseable yields nil", map[string]any{"ids": []any{"nope"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAccountIDs(tt.selector)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
