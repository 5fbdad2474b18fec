package schedule

import (
	"testing"
	"time"
)

func TestNextFire_Manual(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := NextFire(FrequencyManual, nil, nil, now); got != nil {
		t.Fatalf("manual frequency: got %v, want nil", got)
	}
}

func TestNextFire_Interval(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		spec map[string]any
		want time.Duration
	}{
		{"default 60 minutes", map[string]any{}, 60 * time.Minute},
		{"every_minutes", map[string]any{"every_minutes": 15}, 15 * time.Minute},
		{"interval_minutes alias", map[string]any{"interval_minutes": 5}, 5 * time.Minute},
		{"non-positive falls back to 60", map[string]any{"every_minutes": -5}, 60 * time.Minute},
		{"string value parses", map[string]any{"every_minutes": "20"}, 20 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(FrequencyInterval, tt.spec, nil, now)
			if got == nil {
				t.Fatal("got nil, want a timestamp")
			}
			want := now.Add(tt.want)
			if !got.Equal(want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestNextFire_IntervalWithRandomOffset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	spec := map[string]any{"every_minutes": 60}
	randomCfg := map[string]any{"offset_minutes_max": 10}

	for i := 0; i < 50; i++ {
		got := NextFire(FrequencyInterval, spec, randomCfg, now)
		if got == nil {
			t.Fatal("got nil")
		}
		delta := got.Sub(now)
		if delta < 60*time.Minute || delta > 70*time.Minute {
			t.Fatalf("delta %v out of bounds [60m, 70m]", delta)
		}
	}
}

func TestNextFire_Daily(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		spec map[string]any
		want time.Time
	}{
		{
			name: "before time_of_day fires today",
			now:  time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
			spec: map[string]any{"time_of_day": "09:00"},
			want: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "after time_of_day advances a day",
			now:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			spec: map[string]any{"time_of_day": "09:00"},
			want: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "missing time_of_day defaults to 09:00",
			now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			spec: map[string]any{},
			want: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "malformed time_of_day defaults to 09:00",
			now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			spec: map[string]any{"time_of_day": "garbage"},
			want: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(FrequencyDaily, tt.spec, nil, tt.now)
			if got == nil {
				t.Fatal("got nil")
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFire_UnknownFrequencyFallsBackTo24h(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got := NextFire(Frequency("bogus"), nil, nil, now)
	if got == nil {
		t.Fatal("got nil")
	}
	want := now.Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   bool
	}{
		{"no skip_probability never skips", map[string]any{}, false},
		{"probability <= 0 never skips", map[string]any{"skip_probability": 0.0}, false},
		{"probability >= 1 always skips", map[string]any{"skip_probability": 1.0}, true},
		{"unparseable value never skips", map[string]any{"skip_probability": "not-a-number"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSkip(tt.config); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldSkip_Probabilistic(t *testing.T) {
	// With skip_probability=0.5 across many trials we expect a roughly even
	// split; this is a coarse sanity check, not a statistical test.
	hits := 0
	trials := 2000
	for i := 0; i < trials; i++ {
		if ShouldSkip(map[string]any{"skip_probability": 0.5}) {
			hits++
		}
	}
	if hits < trials/4 || hits > trials*3/4 {
		t.Errorf("skip hit rate %d/%d far from 0.5", hits, trials)
	}
}
