package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSessionState_CloneDoesNotAlias(t *testing.T) {
	s := SessionState{Blocking: true, Rules: []string{"a1", "b2"}}
	c := s.Clone()
	c.Rules[0] = "changed"
	if s.Rules[0] != "a1" {
		t.Fatalf("clone aliased the original rules")
	}
	if !c.Blocking {
		t.Fatalf("clone lost blocking flag")
	}
}

func TestNewStatusDocument_EmptyRulesEncodeAsArray(t *testing.T) {
	doc := NewStatusDocument(SessionState{})
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"blocking":false,"sites":[]}` {
		t.Fatalf("unexpected encoding: %s", b)
	}
}

func TestNewStatusDocument_KeepsRulesWhenNotBlocking(t *testing.T) {
	doc := NewStatusDocument(SessionState{Blocking: false, Rules: []string{"youtube"}})
	if doc.Blocking || len(doc.Sites) != 1 || doc.Sites[0] != "youtube" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestTab_HasURL(t *testing.T) {
	if (Tab{ID: "1"}).HasURL() {
		t.Fatalf("empty URL should not be evaluable")
	}
	if !(Tab{ID: "1", URL: "https://example.com"}).HasURL() {
		t.Fatalf("non-empty URL should be evaluable")
	}
}

func TestDecisionConstructors(t *testing.T) {
	tab := Tab{ID: "7", URL: "https://youtube.com"}
	if d := Allow(tab); d.Block || d.MatchedRule != "" || d.Tab != tab {
		t.Fatalf("unexpected allow decision: %+v", d)
	}
	if d := BlockedBy(tab, "youtube"); !d.Block || d.MatchedRule != "youtube" {
		t.Fatalf("unexpected block decision: %+v", d)
	}
}

func TestFetchResult(t *testing.T) {
	ok := Fetched(StatusDocument{Blocking: true})
	if !ok.OK() || !ok.Status.Blocking {
		t.Fatalf("expected ok result, got %+v", ok)
	}
	bad := FetchFailed(errors.New("refused"))
	if bad.OK() {
		t.Fatalf("expected failed result")
	}
}

func TestPhase(t *testing.T) {
	cases := map[Phase]string{PhaseIdle: "idle", PhaseFocus: "focus", PhaseBreak: "break", Phase(9): "Phase(9)"}
	for p, want := range cases {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, p.String(), want)
		}
	}
	if !PhaseFocus.Blocking() || PhaseBreak.Blocking() || PhaseIdle.Blocking() {
		t.Fatalf("only focus should block")
	}
}

func TestAlarm_Validate(t *testing.T) {
	if err := (Alarm{Name: "focus", Period: 3 * time.Second}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Alarm{Name: " ", Period: time.Second}).Validate(); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if err := (Alarm{Name: "focus"}).Validate(); err == nil {
		t.Fatalf("expected error for zero period")
	}
}
