package serverpool

import (
	"strings"
	"testing"
)

func testServers() []Descriptor {
	return []Descriptor{
		{Name: "a", Endpoint: "https://a.example", Capabilities: []string{"chat"}},
		{Name: "b", Endpoint: "https://b.example", Capabilities: []string{"chat", "transcription"}},
		{Name: "c", Endpoint: "https://c.example", Capabilities: []string{"transcription"}},
		{Name: "d", Endpoint: "https://d.example", Capabilities: []string{"chat", "image_gen"}},
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := New([]Descriptor{{Endpoint: "https://x.example", Driver: "bard"}})
	if err == nil {
		t.Fatal("New() expected error for unknown driver")
	}
}

func TestNewRejectsMissingEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New([]Descriptor{{Name: "x"}})
	if err == nil {
		t.Fatal("New() expected error for missing endpoint")
	}
}

func TestNewDefaultsDriverAndCapabilities(t *testing.T) {
	t.Parallel()

	p, err := New([]Descriptor{{Endpoint: "https://x.example"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s := p.Servers()[0]
	if s.Driver != DriverOpenAI {
		t.Fatalf("Driver = %q, want %q", s.Driver, DriverOpenAI)
	}
	if !s.Has(CapabilityChat) {
		t.Fatal("default capabilities should include chat")
	}
}

func TestFilterByCapabilityPreservesOrder(t *testing.T) {
	t.Parallel()

	p, err := New(testServers())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := p.FilterByCapability(CapabilityTranscription)
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("FilterByCapability(transcription) = %v, want [b c]", names(got))
	}
	if got := p.FilterByCapability(CapabilityCompletion); len(got) != 0 {
		t.Fatalf("FilterByCapability(completion) = %v, want empty", names(got))
	}
}

func TestShuffledOrderIsPermutation(t *testing.T) {
	t.Parallel()

	p, err := New(testServers())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	seen := map[string]bool{}
	for range 50 {
		order := p.ShuffledOrder()
		if len(order) != p.Len() {
			t.Fatalf("ShuffledOrder() length = %d, want %d", len(order), p.Len())
		}
		unique := map[string]bool{}
		for _, s := range order {
			unique[s.Name] = true
		}
		if len(unique) != p.Len() {
			t.Fatalf("ShuffledOrder() = %v is not a permutation", names(order))
		}
		seen[strings.Join(names(order), ",")] = true
	}
	// 4 servers have 24 permutations; 50 draws virtually always produce
	// more than one distinct order.
	if len(seen) < 2 {
		t.Fatalf("ShuffledOrder() produced a single order across 50 draws: %v", seen)
	}
}

func TestShuffledOrderDoesNotMutatePool(t *testing.T) {
	t.Parallel()

	p, err := New(testServers())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for range 20 {
		p.ShuffledOrder()
	}
	got := names(p.Servers())
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Servers() = %v, want %v", got, want)
		}
	}
}

func names(servers []Descriptor) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Name
	}
	return out
}
