package platform

import "github.com/playwright-community/playwright-go"

// ContextOptionsForFingerprint builds browser-context options from a
// fingerprint_profile JSON blob (as stored on SocialAccount and generated by
// the control plane's fingerprint assignment), accepting only a narrow,
// type-checked field whitelist. Any field that is absent or fails its type
// check is silently dropped rather than rejecting the whole profile, since
// the profile is untrusted JSON that outlives schema changes on either side.
func ContextOptionsForFingerprint(profile map[string]any) playwright.BrowserNewContextOptions {
	var opts playwright.BrowserNewContextOptions
	if len(profile) == 0 {
		return opts
	}

	if ua, ok := profile["user_agent"].(string); ok && ua != "" {
		opts.UserAgent = playwright.String(ua)
	}
	if locale, ok := profile["locale"].(string); ok && locale != "" {
		opts.Locale = playwright.String(locale)
	}
	if tz, ok := profile["timezone_id"].(string); ok && tz != "" {
		opts.TimezoneId = playwright.String(tz)
	}
	if cs, ok := profile["color_scheme"].(string); ok {
		if scheme, ok := colorScheme(cs); ok {
			opts.ColorScheme = scheme
		}
	}
	if dsf, ok := numberField(profile["device_scale_factor"]); ok {
		opts.DeviceScaleFactor = playwright.Float(dsf)
	}
	if mobile, ok := profile["is_mobile"].(bool); ok {
		opts.IsMobile = playwright.Bool(mobile)
	}
	if touch, ok := profile["has_touch"].(bool); ok {
		opts.HasTouch = playwright.Bool(touch)
	}
	if vw, ok := viewport(profile["viewport"]); ok {
		opts.Viewport = vw
	}

	return opts
}

// numberField type-checks a decoded-JSON numeric field, which arrives as a
// float64 regardless of whether the source JSON wrote an int or a float.
func numberField(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func colorScheme(v string) (*playwright.ColorScheme, bool) {
	switch v {
	case "light":
		return playwright.ColorSchemeLight, true
	case "dark":
		return playwright.ColorSchemeDark, true
	case "no-preference":
		return playwright.ColorSchemeNoPreference, true
	default:
		return nil, false
	}
}

func viewport(v any) (*playwright.Size, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	width, wok := numberField(m["width"])
	height, hok := numberField(m["height"])
	if !wok || !hok || width <= 0 || height <= 0 {
		return nil, false
	}
	return &playwright.Size{Width: int(width), Height: int(height)}, true
}
