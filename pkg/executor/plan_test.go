package executor

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestActionSpec_IdempotencyKey(t *testing.T) {
	ws := uuid.New()
	acc := uuid.New()
	spec := ActionSpec{ActionType: "x_like", StableTarget: "12345"}

	got := spec.IdempotencyKey(ws, acc, 2)
	want := ws.String() + ":" + acc.String() + ":x_like:12345:v2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHealthCheckIdempotencyKey(t *testing.T) {
	ws := uuid.New()
	acc := uuid.New()
	run := uuid.New()

	got := HealthCheckIdempotencyKey(ws, acc, run)
	want := ws.String() + ":" + acc.String() + ":health_check:" + run.String()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildPlan_LikeRepost(t *testing.T) {
	config := map[string]any{
		"type":    "like",
		"targets": []any{"https://x.com/acme/status/111", "https://x.com/acme/status/222"},
	}

	specs := BuildPlan("x", config)
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].ActionType != "x_like" || specs[0].TargetExternalID != "111" {
		t.Errorf("unexpected first spec: %+v", specs[0])
	}
	if specs[1].TargetExternalID != "222" {
		t.Errorf("unexpected second spec: %+v", specs[1])
	}
}

func TestBuildPlan_MaxActionsClampsTargets(t *testing.T) {
	config := map[string]any{
		"type": "repost",
		"targets": []any{
			"https://x.com/a/status/1",
			"https://x.com/a/status/2",
			"https://x.com/a/status/3",
		},
		"max_actions": 2,
	}

	specs := BuildPlan("x", config)
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
}

func TestBuildPlan_UnknownTypeReturnsNil(t *testing.T) {
	specs := BuildPlan("x", map[string]any{"type": "not_a_real_strategy"})
	if specs != nil {
		t.Errorf("got %v, want nil", specs)
	}
}

func TestIsSearchThenAct(t *testing.T) {
	if !IsSearchThenAct(map[string]any{"type": "x_search_like"}) {
		t.Error("x_search_like should be search-then-act")
	}
	if !IsSearchThenAct(map[string]any{"type": "x_verified_repost"}) {
		t.Error("x_verified_repost should be search-then-act")
	}
	if IsSearchThenAct(map[string]any{"type": "like"}) {
		t.Error("like should not be search-then-act")
	}
}

func TestBuildPlan_SearchCollectSynthesizesVerifiedQuery(t *testing.T) {
	config := map[string]any{
		"type":  "x_verified_like",
		"query": "go programming",
	}

	specs := BuildPlan("x", config)
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	spec := specs[0]
	if spec.ActionType != "x_search_collect" {
		t.Errorf("got action type %q, want x_search_collect", spec.ActionType)
	}
	if !strings.Contains(spec.TargetURL, "filter%3Averified") && !strings.Contains(spec.TargetURL, "filter:verified") {
		t.Errorf("verified query not reflected in url: %q", spec.TargetURL)
	}
	if spec.Params["verified_only_dom"] != true {
		t.Errorf("expected verified_only_dom true, got %v", spec.Params["verified_only_dom"])
	}
}

func TestBuildSearchActPlan_FiltersVerifiedOnly(t *testing.T) {
	candidates := []SearchCandidate{
		{TweetID: "1", URL: "https://x.com/a/status/1", IsVerified: false},
		{TweetID: "2", URL: "https://x.com/a/status/2", IsVerified: true},
		{TweetID: "3", URL: "https://x.com/a/status/3", IsVerified: true},
	}

	specs := BuildSearchActPlan("x_verified_like", map[string]any{"max_actions": 10}, candidates)
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2 (only verified candidates)", len(specs))
	}
	for _, s := range specs {
		if s.ActionType != "x_like" {
			t.Errorf("got action type %q, want x_like", s.ActionType)
		}
	}
}

func TestBuildSearchActPlan_RespectsMaxActions(t *testing.T) {
	candidates := []SearchCandidate{
		{TweetID: "1", URL: "https://x.com/a/status/1"},
		{TweetID: "2", URL: "https://x.com/a/status/2"},
		{TweetID: "3", URL: "https://x.com/a/status/3"},
	}

	specs := BuildSearchActPlan("x_search_repost", map[string]any{"max_actions": 1}, candidates)
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	if specs[0].ActionType != "x_repost" {
		t.Errorf("got action type %q, want x_repost", specs[0].ActionType)
	}
}

func TestBuildSearchActPlan_UnknownTypeReturnsNil(t *testing.T) {
	specs := BuildSearchActPlan("like", map[string]any{}, []SearchCandidate{{TweetID: "1"}})
	if specs != nil {
		t.Errorf("got %v, want nil", specs)
	}
}
