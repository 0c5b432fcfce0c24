package routing

import "testing"

func TestParsePathPattern(t *testing.T) {
	t.Parallel()

	if _, ok := parsePathPattern("/healthz"); ok {
		t.Fatal("expected non-pattern")
	}
	if _, ok := parsePathPattern("no-leading-slash"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("{no-leading-slash-but-has-brace}"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("/a/{id"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("/a/{}/b"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("/a/{id}x/b"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("/a/id}/b"); ok {
		t.Fatal("expected invalid")
	}
	if _, ok := parsePathPattern("/a//{id}/b"); ok {
		t.Fatal("expected invalid (empty segment)")
	}

	p, ok := parsePathPattern("/a/{id}/b")
	if !ok {
		t.Fatal("expected ok")
	}
	if (PathPattern{}).Match("/a/x/b") {
		t.Fatal("expected zero-value to not match")
	}
	if !p.Match("/a/x/b") {
		t.Fatal("expected match")
	}
	if p.Match("/a/x/c") {
		t.Fatal("expected no match")
	}
	if p.Match("/a/x") {
		t.Fatal("expected no match")
	}
	if p.Match("/a//b") {
		t.Fatal("expected no match for empty segment")
	}
}

func TestMatchParams(t *testing.T) {
	t.Parallel()

	p, ok := parsePathPattern("/api/v1/therapeutic/trial/{trial_id}/{user_id}/delete-all")
	if !ok {
		t.Fatal("expected ok")
	}

	params, ok := p.MatchParams("/api/v1/therapeutic/trial/t-1/u-2/delete-all")
	if !ok {
		t.Fatal("expected match")
	}
	if params["trial_id"] != "t-1" || params["user_id"] != "u-2" {
		t.Fatalf("params=%v", params)
	}

	if _, ok := p.MatchParams("/api/v1/therapeutic/trial/t-1/u-2/other"); ok {
		t.Fatal("expected no match")
	}
}
