// Package executor builds action plans from a strategy configuration and
// drives an AccountRun to completion against the browser-node worker.
package executor

import (
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ActionSpec is one planned action, not yet persisted. PlatformKey and
// ActionType identify the worker operation; StableTarget feeds the
// idempotency key; TargetURL/TargetExternalID/Params are carried through to
// the worker request.
type ActionSpec struct {
	ActionType       string
	PlatformKey      string
	TargetURL        string
	TargetExternalID string
	StableTarget     string
	Params           map[string]any
}

// IdempotencyKey builds the normative key for a planned action:
// {workspace}:{account}:{action_type}:{stable_target}:v{strategy_version}.
func (a ActionSpec) IdempotencyKey(workspaceID, accountID uuid.UUID, strategyVersion int) string {
	return fmt.Sprintf("%s:%s:%s:%s:v%d", workspaceID, accountID, a.ActionType, a.StableTarget, strategyVersion)
}

// HealthCheckIdempotencyKey builds the health-probe key, which is keyed by
// run id rather than a stable target.
func HealthCheckIdempotencyKey(workspaceID, accountID, runID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:health_check:%s", workspaceID, accountID, runID)
}

var tweetIDFromURL = regexp.MustCompile(`/status/(\d+)`)

// likeRepostTypes maps a strategy's declared type to the worker action it
// emits for each target.
var likeRepostTypes = map[string]string{
	"x_like":    "x_like",
	"like":      "x_like",
	"x_repost":  "x_repost",
	"x_retweet": "x_repost",
	"retweet":   "x_repost",
	"repost":    "x_repost",
}

// searchActionTypes maps a strategy's declared type to the worker action it
// emits during the second (act) pass of a search-then-act plan, along with
// whether verified_only is implied by the type itself.
var searchActionTypes = map[string]struct {
	action   string
	verified bool
}{
	"x_search_like":    {"x_like", false},
	"x_search_repost":  {"x_repost", false},
	"x_verified_like":  {"x_like", true},
	"x_verified_repost": {"x_repost", true},
}

// BuildPlan constructs the like/repost or search-collect action specs
// derivable purely from strategy.config, without needing search results.
// It does not include the health_check action; the executor prepends that. Search-then-act plans
// return their phase-1 x_search_collect spec here; the caller executes it,
// then calls BuildSearchActPlan with the returned candidates for phase 2.
func BuildPlan(platformKey string, config map[string]any) []ActionSpec {
	strategyType, _ := config["type"].(string)

	if worker, ok := likeRepostTypes[strategyType]; ok && platformKey == "x" {
		return buildLikeRepostPlan(worker, config)
	}

	if _, ok := searchActionTypes[strategyType]; ok && platformKey == "x" {
		return []ActionSpec{buildSearchCollectSpec(strategyType, config)}
	}

	return nil
}

// IsSearchThenAct reports whether config describes a two-phase
// search-then-act strategy.
func IsSearchThenAct(config map[string]any) bool {
	strategyType, _ := config["type"].(string)
	_, ok := searchActionTypes[strategyType]
	return ok
}

func buildLikeRepostPlan(workerAction string, config map[string]any) []ActionSpec {
	targets := extractTargets(config)
	if max := positiveInt(config["max_actions"]); max > 0 && max < len(targets) {
		targets = targets[:max]
	}

	specs := make([]ActionSpec, 0, len(targets))
	for _, t := range targets {
		specs = append(specs, ActionSpec{
			ActionType:   workerAction,
			PlatformKey:  "x",
			TargetURL:    t.url,
			StableTarget: stableTarget(t.tweetID, t.url),
			Params:       map[string]any{},
		})
		if t.tweetID != "" {
			specs[len(specs)-1].TargetExternalID = t.tweetID
		}
	}
	return specs
}

type target struct {
	url     string
	tweetID string
}

// extractTargets reads config.targets or config.target_urls. Each item is
// either a URL string or a map {url, tweet_id}; tweet_id is extracted from
// the URL by regex when absent.
func extractTargets(config map[string]any) []target {
	raw, ok := config["targets"].([]any)
	if !ok {
		raw, ok = config["target_urls"].([]any)
		if !ok {
			return nil
		}
	}

	out := make([]target, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, target{url: v, tweetID: extractTweetID(v)})
		case map[string]any:
			u, _ := v["url"].(string)
			tid, _ := v["tweet_id"].(string)
			if tid == "" {
				tid = extractTweetID(u)
			}
			out = append(out, target{url: u, tweetID: tid})
		}
	}
	return out
}

func extractTweetID(rawURL string) string {
	m := tweetIDFromURL.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func stableTarget(tweetID, rawURL string) string {
	if tweetID != "" {
		return tweetID
	}
	return rawURL
}

// buildSearchCollectSpec builds the phase-1 x_search_collect action: a
// synthesized X search URL plus the scroll/candidate params the worker
// honors.
func buildSearchCollectSpec(strategyType string, config map[string]any) ActionSpec {
	info := searchActionTypes[strategyType]

	query, _ := config["query"].(string)
	if query == "" {
		query = randomKeyword(config["keywords"])
	}

	verifiedOnly := info.verified
	if explicit, ok := config["verified_only"].(bool); ok {
		verifiedOnly = explicit
	}
	if verifiedOnly && !strings.Contains(query, "filter:verified") {
		query = strings.TrimSpace(query + " filter:verified")
	}

	feed := "live"
	if f, ok := config["feed"].(string); ok && (f == "live" || f == "top") {
		feed = f
	}

	searchURL := fmt.Sprintf("https://x.com/search?q=%s&src=typed_query&f=%s", url.QueryEscape(query), feed)

	maxCandidates := clampInt(positiveIntOr(config["max_candidates"], 20), 1, 200)
	scrollLimit := clampInt(positiveIntOr(config["scroll_limit"], 6), 0, 50)

	params := map[string]any{
		"max_candidates": maxCandidates,
		"scroll_limit":   scrollLimit,
	}
	if verifiedOnlyDOM, ok := config["verified_only_dom"].(bool); ok {
		params["verified_only_dom"] = verifiedOnlyDOM
	} else if verifiedOnly {
		params["verified_only_dom"] = true
	}

	return ActionSpec{
		ActionType:   "x_search_collect",
		PlatformKey:  "x",
		TargetURL:    searchURL,
		StableTarget: searchURL,
		Params:       params,
	}
}

func randomKeyword(raw any) string {
	keywords, ok := raw.([]any)
	if !ok || len(keywords) == 0 {
		return ""
	}
	idx := rand.Intn(len(keywords))
	kw, _ := keywords[idx].(string)
	return kw
}

// BuildSearchActPlan builds the phase-2 like/repost specs from the
// candidates collected by phase 1. Candidates are shuffled, then the first
// max_actions matching the verified_only filter are emitted.
func BuildSearchActPlan(strategyType string, config map[string]any, candidates []SearchCandidate) []ActionSpec {
	info, ok := searchActionTypes[strategyType]
	if !ok {
		return nil
	}

	verifiedOnly := info.verified
	if explicit, ok := config["verified_only"].(bool); ok {
		verifiedOnly = explicit
	}
	maxActions := clampInt(positiveIntOr(config["max_actions"], 3), 1, 50)

	shuffled := make([]SearchCandidate, len(candidates))
	copy(shuffled, candidates)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	specs := make([]ActionSpec, 0, maxActions)
	for _, c := range shuffled {
		if len(specs) >= maxActions {
			break
		}
		if verifiedOnly && !c.IsVerified {
			continue
		}
		specs = append(specs, ActionSpec{
			ActionType:       info.action,
			PlatformKey:      "x",
			TargetURL:        c.URL,
			TargetExternalID: c.TweetID,
			StableTarget:     stableTarget(c.TweetID, c.URL),
			Params:           map[string]any{},
		})
	}
	return specs
}

// SearchCandidate mirrors the shape the worker's x_search_collect action
// returns in metadata.candidates.
type SearchCandidate struct {
	TweetID    string `json:"tweet_id"`
	URL        string `json:"url"`
	IsVerified bool   `json:"is_verified"`
}

func positiveInt(v any) int {
	return positiveIntOr(v, 0)
}

func positiveIntOr(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		if n > 0 {
			return n
		}
	case int64:
		if n > 0 {
			return int(n)
		}
	case float64:
		if n > 0 {
			return int(n)
		}
	}
	return fallback
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
