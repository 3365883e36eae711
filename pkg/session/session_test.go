package session

import (
	"testing"

	"github.com/willwinworld/xapian/pkg/query"
)

func evolvedSession(t *testing.T) *State {
	t.Helper()
	s := New("s1")
	if _, _, err := s.Evolve("cat dog", query.NewParser()); err != nil {
		t.Fatalf("seed Evolve failed: %v", err)
	}
	s.Tick(7)
	s.Tick(12)
	s.Page = 3
	return s
}

func TestEvolveSameQueryKeepsEverything(t *testing.T) {
	s := evolvedSession(t)

	qt, _, err := s.Evolve("dog cat", query.NewParser())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if qt != query.SameQuery {
		t.Fatalf("classification = %v, want %v", qt, query.SameQuery)
	}
	if !s.IsTicked(7) || !s.IsTicked(12) {
		t.Error("ticks lost on same query")
	}
	if s.Page != 3 {
		t.Errorf("page = %d, want 3", s.Page)
	}
	if s.RawQuery != "dog cat" {
		t.Errorf("raw query = %q, want latest input", s.RawQuery)
	}
}

func TestEvolveExtendedQueryKeepsTicksResetsPage(t *testing.T) {
	s := evolvedSession(t)

	qt, parsed, err := s.Evolve("cat dog bird", query.NewParser())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if qt != query.ExtendedQuery {
		t.Fatalf("classification = %v, want %v", qt, query.ExtendedQuery)
	}
	if !s.IsTicked(7) || !s.IsTicked(12) {
		t.Error("ticks lost on extended query")
	}
	if s.Page != 0 {
		t.Errorf("page = %d, want 0", s.Page)
	}
	if !s.Terms.Equal(parsed.Terms) {
		t.Errorf("session terms %v not updated to %v", s.Terms.Terms(), parsed.Terms.Terms())
	}
}

func TestEvolveNewQueryDiscardsTicks(t *testing.T) {
	s := evolvedSession(t)

	qt, _, err := s.Evolve("bird", query.NewParser())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if qt != query.NewQuery {
		t.Fatalf("classification = %v, want %v", qt, query.NewQuery)
	}
	if len(s.Ticked) != 0 {
		t.Errorf("ticks survived a new query: %v", s.TickedDocs())
	}
	if s.Page != 0 {
		t.Errorf("page = %d, want 0", s.Page)
	}
}

func TestEvolveBadQueryResetsLikeNew(t *testing.T) {
	s := evolvedSession(t)

	qt, _, err := s.Evolve(`cat "unterminated`, query.NewParser())
	if err == nil {
		t.Fatal("Evolve with bad input succeeded, want error")
	}
	if qt != query.BadQuery {
		t.Fatalf("classification = %v, want %v", qt, query.BadQuery)
	}
	if len(s.Ticked) != 0 {
		t.Error("ticks survived a bad query")
	}
	if s.Page != 0 {
		t.Errorf("page = %d, want 0", s.Page)
	}
	if s.Terms.Len() != 0 {
		t.Errorf("terms survived a bad query: %v", s.Terms.Terms())
	}
}

func TestEvolveFirstQueryIsExtended(t *testing.T) {
	s := New("s2")
	qt, _, err := s.Evolve("cat", query.NewParser())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	// An empty previous set is a subset of any non-empty one.
	if qt != query.ExtendedQuery {
		t.Errorf("classification = %v, want %v", qt, query.ExtendedQuery)
	}
}

func TestTickUntick(t *testing.T) {
	var s State // zero value must be usable
	s.Tick(3)
	s.Tick(1)
	s.Tick(3)
	if got := s.TickedDocs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("TickedDocs = %v, want [1 3]", got)
	}

	s.Untick(3)
	if s.IsTicked(3) {
		t.Error("doc 3 still ticked after Untick")
	}
	if !s.IsTicked(1) {
		t.Error("doc 1 lost its tick")
	}
}
