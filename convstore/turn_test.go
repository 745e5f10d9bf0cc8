package convstore

import (
	"fmt"
	"strings"
	"testing"
)

func pair(i int) []Turn {
	return []Turn{
		{Role: RoleUser, Content: fmt.Sprintf("question %d", i)},
		{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
	}
}

func TestPruneByPairCount(t *testing.T) {
	t.Parallel()

	var turns []Turn
	for i := range 5 {
		turns = append(turns, pair(i)...)
	}
	got := Prune(turns, Ceilings{MaxPairs: 2})
	if len(got) != 4 {
		t.Fatalf("Prune() kept %d turns, want 4", len(got))
	}
	if got[0].Content != "question 3" || got[3].Content != "answer 4" {
		t.Fatalf("Prune() kept %v, want pairs 3 and 4", got)
	}
}

func TestPruneByCharSizeDropsOldestPairs(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 600)
	var turns []Turn
	for range 10 {
		turns = append(turns, Turn{Role: RoleUser, Content: big}, Turn{Role: RoleAssistant, Content: big})
	}
	got := Prune(turns, Ceilings{MaxChars: 4000})
	if CharSize(got) > 4000 {
		t.Fatalf("Prune() size = %d, want <= 4000", CharSize(got))
	}
	if len(got)%2 != 0 {
		t.Fatalf("Prune() left odd turn count %d", len(got))
	}
	// newest pair always survives
	if got[len(got)-1].Role != RoleAssistant {
		t.Fatalf("Prune() last turn role = %q, want assistant", got[len(got)-1].Role)
	}
}

func TestPruneCharCeilingIsAbsolute(t *testing.T) {
	t.Parallel()

	// Even the newest pair goes when it alone exceeds the ceiling; the
	// stored size must never end up above the configured bound.
	huge := strings.Repeat("я", 5000)
	turns := []Turn{
		{Role: RoleUser, Content: huge},
		{Role: RoleAssistant, Content: huge},
	}
	got := Prune(turns, Ceilings{MaxChars: 1000})
	if size := CharSize(got); size > 1000 {
		t.Fatalf("Prune() left size %d > ceiling 1000 (kept %d turns)", size, len(got))
	}
	if len(got) != 0 {
		t.Fatalf("Prune() kept %d turns, want 0", len(got))
	}

	// A lone oversized trailing turn is dropped the same way.
	got = Prune([]Turn{{Role: RoleUser, Content: huge}}, Ceilings{MaxChars: 1000})
	if len(got) != 0 {
		t.Fatalf("Prune() kept %d turns for oversized odd turn, want 0", len(got))
	}
}

func TestPruneCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	turns := []Turn{{Role: RoleUser, Content: strings.Repeat("ё", 10)}}
	if got := CharSize(turns); got != 10 {
		t.Fatalf("CharSize() = %d, want 10", got)
	}
}

func TestPruneCollapsesDuplicatePairs(t *testing.T) {
	t.Parallel()

	turns := append(append(append([]Turn{}, pair(1)...), pair(1)...), pair(2)...)
	got := Prune(turns, Ceilings{})
	if len(got) != 4 {
		t.Fatalf("Prune() kept %d turns, want 4 after dedupe", len(got))
	}
	if got[0].Content != "question 1" || got[2].Content != "question 2" {
		t.Fatalf("Prune() kept %v", got)
	}
}

func TestPruneDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	var turns []Turn
	for i := range 4 {
		turns = append(turns, pair(i)...)
	}
	before := fmt.Sprintf("%v", turns)
	_ = Prune(turns, Ceilings{MaxPairs: 1})
	if after := fmt.Sprintf("%v", turns); after != before {
		t.Fatalf("Prune() mutated input: %s -> %s", before, after)
	}
}

func TestPruneUnboundedKeepsEverything(t *testing.T) {
	t.Parallel()

	var turns []Turn
	for i := range 30 {
		turns = append(turns, pair(i)...)
	}
	if got := Prune(turns, Ceilings{}); len(got) != len(turns) {
		t.Fatalf("Prune() kept %d turns, want %d", len(got), len(turns))
	}
}
