package platform

import (
	"testing"

	"github.com/playwright-community/playwright-go"
)

func TestContextOptionsForFingerprint_Empty(t *testing.T) {
	opts := ContextOptionsForFingerprint(nil)
	if opts.UserAgent != nil || opts.Viewport != nil || opts.Locale != nil {
		t.Fatalf("expected zero-value options, got %+v", opts)
	}
}

func TestContextOptionsForFingerprint_FullProfile(t *testing.T) {
	profile := map[string]any{
		"user_agent":          "Mozilla/5.0 test-agent",
		"viewport":            map[string]any{"width": float64(1920), "height": float64(1080)},
		"locale":              "en-US",
		"timezone_id":         "America/New_York",
		"color_scheme":        "dark",
		"device_scale_factor": float64(2),
		"is_mobile":           false,
		"has_touch":           true,
	}

	opts := ContextOptionsForFingerprint(profile)

	if opts.UserAgent == nil || *opts.UserAgent != "Mozilla/5.0 test-agent" {
		t.Errorf("user_agent not applied: %+v", opts.UserAgent)
	}
	if opts.Viewport == nil || opts.Viewport.Width != 1920 || opts.Viewport.Height != 1080 {
		t.Errorf("viewport not applied: %+v", opts.Viewport)
	}
	if opts.Locale == nil || *opts.Locale != "en-US" {
		t.Errorf("locale not applied: %+v", opts.Locale)
	}
	if opts.TimezoneId == nil || *opts.TimezoneId != "America/New_York" {
		t.Errorf("timezone_id not applied: %+v", opts.TimezoneId)
	}
	if opts.ColorScheme == nil || *opts.ColorScheme != *playwright.ColorSchemeDark {
		t.Errorf("color_scheme not applied: %+v", opts.ColorScheme)
	}
	if opts.DeviceScaleFactor == nil || *opts.DeviceScaleFactor != 2 {
		t.Errorf("device_scale_factor not applied: %+v", opts.DeviceScaleFactor)
	}
	if opts.IsMobile == nil || *opts.IsMobile != false {
		t.Errorf("is_mobile not applied: %+v", opts.IsMobile)
	}
	if opts.HasTouch == nil || *opts.HasTouch != true {
		t.Errorf("has_touch not applied: %+v", opts.HasTouch)
	}
}

func TestContextOptionsForFingerprint_MalformedFieldsDropped(t *testing.T) {
	profile := map[string]any{
		"user_agent":          42,
		"viewport":            map[string]any{"width": "wide", "height": float64(1080)},
		"locale":              123,
		"color_scheme":        "sepia",
		"device_scale_factor": "two",
		"is_mobile":           "yes",
	}

	opts := ContextOptionsForFingerprint(profile)

	if opts.UserAgent != nil {
		t.Errorf("expected non-string user_agent to be dropped, got %v", *opts.UserAgent)
	}
	if opts.Viewport != nil {
		t.Errorf("expected malformed viewport to be dropped, got %+v", opts.Viewport)
	}
	if opts.Locale != nil {
		t.Errorf("expected non-string locale to be dropped, got %v", *opts.Locale)
	}
	if opts.ColorScheme != nil {
		t.Errorf("expected unrecognized color_scheme to be dropped, got %v", *opts.ColorScheme)
	}
	if opts.DeviceScaleFactor != nil {
		t.Errorf("expected non-numeric device_scale_factor to be dropped, got %v", *opts.DeviceScaleFactor)
	}
	if opts.IsMobile != nil {
		t.Errorf("expected non-bool is_mobile to be dropped, got %v", *opts.IsMobile)
	}
}
