package schedule

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// NextFire computes the next fire time for a schedule, or nil for "manual"
// and any frequency with no further occurrence. Unknown frequencies fall
// back to now+24h, matching the original planner's degrade-gracefully
// behavior rather than erroring.
func NextFire(frequency Frequency, spec, randomConfig map[string]any, now time.Time) *time.Time {
	nowUTC := now.UTC()

	switch Frequency(strings.ToLower(string(frequency))) {
	case FrequencyManual:
		return nil

	case FrequencyInterval:
		everyMinutes := getInt(spec, []string{"every_minutes", "interval_minutes"}, 60)
		if everyMinutes <= 0 {
			everyMinutes = 60
		}
		next := nowUTC.Add(time.Duration(everyMinutes) * time.Minute)
		return applyRandomOffset(next, randomConfig)

	case FrequencyDaily:
		hour, minute := parseTimeOfDay(stringOrDefault(spec["time_of_day"], "09:00"))
		candidate := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), hour, minute, 0, 0, time.UTC)
		if !candidate.After(nowUTC) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return applyRandomOffset(candidate, randomConfig)

	default:
		return applyRandomOffset(nowUTC.Add(24*time.Hour), randomConfig)
	}
}

// ShouldSkip decides whether a due fire should be skipped without running,
// based on random_config.skip_probability.
func ShouldSkip(randomConfig map[string]any) bool {
	raw, ok := randomConfig["skip_probability"]
	if !ok {
		return false
	}
	prob, ok := toFloat(raw)
	if !ok {
		return false
	}
	if prob <= 0 {
		return false
	}
	if prob >= 1 {
		return true
	}
	return rand.Float64() < prob
}

func applyRandomOffset(next time.Time, randomConfig map[string]any) *time.Time {
	maxOffset := getInt(randomConfig, []string{"offset_minutes_max", "random_offset_minutes_max"}, 0)
	if maxOffset <= 0 {
		result := next.UTC()
		return &result
	}
	offset := rand.Intn(maxOffset + 1)
	result := next.UTC().Add(time.Duration(offset) * time.Minute)
	return &result
}

func getInt(source map[string]any, keys []string, def int) int {
	for _, key := range keys {
		value, ok := source[key]
		if !ok || value == nil {
			continue
		}
		if i, ok := toInt(value); ok {
			return i
		}
	}
	return def
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringOrDefault(value any, def string) string {
	s, ok := value.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// parseTimeOfDay parses "HH:MM" into clamped hour/minute, defaulting to 09:00
// on any malformed input, matching the original planner's tolerant parsing.
func parseTimeOfDay(value string) (int, int) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 9, 0
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return 9, 0
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 9, 0
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 9, 0
	}
	hour = clamp(hour, 0, 23)
	minute = clamp(minute, 0, 59)
	return hour, minute
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
