// Package serverpool holds the configured list of interchangeable backend
// servers and hands out randomized trial orders for failover.
package serverpool

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Capability string

const (
	CapabilityChat          Capability = "chat"
	CapabilityCompletion    Capability = "completion"
	CapabilityTranscription Capability = "transcription"
	CapabilityImageGen      Capability = "image_gen"
)

const (
	DriverOpenAI = "openai"
	DriverGemini = "gemini"
)

// Descriptor identifies one backend server. Immutable after configuration
// load; the pool never mutates descriptors at runtime.
type Descriptor struct {
	Name         string   `mapstructure:"name"`
	Driver       string   `mapstructure:"driver"`
	Endpoint     string   `mapstructure:"endpoint"`
	APIKey       string   `mapstructure:"api_key"`
	Model        string   `mapstructure:"model"`
	Capabilities []string `mapstructure:"capabilities"`
}

func (d Descriptor) Has(c Capability) bool {
	for _, raw := range d.Capabilities {
		if Capability(strings.ToLower(strings.TrimSpace(raw))) == c {
			return true
		}
	}
	return false
}

// Label is the server identity used in failure logs. The credential never
// appears in it.
func (d Descriptor) Label() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.Endpoint
}

type Pool struct {
	servers []Descriptor
}

func New(servers []Descriptor) (*Pool, error) {
	normalized := make([]Descriptor, 0, len(servers))
	for i, s := range servers {
		s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
		if s.Driver == "" {
			s.Driver = DriverOpenAI
		}
		if s.Driver != DriverOpenAI && s.Driver != DriverGemini {
			return nil, fmt.Errorf("serverpool: server %d: unknown driver %q", i, s.Driver)
		}
		if strings.TrimSpace(s.Endpoint) == "" {
			return nil, fmt.Errorf("serverpool: server %d: endpoint is required", i)
		}
		if len(s.Capabilities) == 0 {
			s.Capabilities = []string{string(CapabilityChat)}
		}
		normalized = append(normalized, s)
	}
	return &Pool{servers: normalized}, nil
}

func (p *Pool) Len() int {
	return len(p.servers)
}

// Servers returns the configured order. Callers must not mutate the result.
func (p *Pool) Servers() []Descriptor {
	out := make([]Descriptor, len(p.servers))
	copy(out, p.servers)
	return out
}

// ShuffledOrder returns a fresh uniformly random permutation of all servers.
// The permutation is drawn per call so concurrent requests diverge instead of
// hammering the same entry.
func (p *Pool) ShuffledOrder() []Descriptor {
	out := p.Servers()
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// FilterByCapability keeps only servers advertising c, preserving the
// configured relative order. An empty result is valid; the dispatcher
// reports exhaustion immediately.
func (p *Pool) FilterByCapability(c Capability) []Descriptor {
	var out []Descriptor
	for _, s := range p.servers {
		if s.Has(c) {
			out = append(out, s)
		}
	}
	return out
}
