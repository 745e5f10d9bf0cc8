package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morphlane/relaychat/serverpool"
)

// Transcriber is implemented by drivers that can turn audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, timeout time.Duration) (string, error)
}

// ImageGenerator is implemented by drivers that can render images.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt string, n int, size string, timeout time.Duration) ([]string, error)
}

// ExecuteTranscription runs the same shuffled failover loop as Execute for
// speech-to-text. Servers whose driver cannot transcribe are skipped even if
// misconfigured with the capability flag.
func (d *Dispatcher) ExecuteTranscription(ctx context.Context, audio []byte, filename string, timeout time.Duration) Outcome {
	requestID := uuid.NewString()
	outcome := Outcome{}
	for _, server := range d.ShuffledCapable(serverpool.CapabilityTranscription) {
		server := server
		transcriber, ok := d.clientFor(server).(Transcriber)
		if !ok {
			continue
		}
		text, err := transcriber.Transcribe(ctx, audio, filename, timeout)
		if err != nil {
			outcome.Failures++
			d.logger.Warn("transcribe_server_failed",
				"request_id", requestID,
				"server", server.Label(),
				"error", err.Error())
			continue
		}
		if strings.TrimSpace(text) == "" {
			outcome.Failures++
			continue
		}
		outcome.Succeeded = true
		outcome.Text = text
		outcome.Server = &server
		return outcome
	}
	outcome.Exhausted = true
	return outcome
}

// ExecuteImages returns the first server's non-empty URL list.
func (d *Dispatcher) ExecuteImages(ctx context.Context, prompt string, n int, size string, timeout time.Duration) ([]string, Outcome) {
	requestID := uuid.NewString()
	outcome := Outcome{}
	for _, server := range d.ShuffledCapable(serverpool.CapabilityImageGen) {
		server := server
		generator, ok := d.clientFor(server).(ImageGenerator)
		if !ok {
			continue
		}
		urls, err := generator.GenerateImages(ctx, prompt, n, size, timeout)
		if err != nil {
			outcome.Failures++
			d.logger.Warn("image_gen_server_failed",
				"request_id", requestID,
				"server", server.Label(),
				"error", err.Error())
			continue
		}
		if len(urls) == 0 {
			outcome.Failures++
			continue
		}
		outcome.Succeeded = true
		outcome.Server = &server
		return urls, outcome
	}
	outcome.Exhausted = true
	return nil, outcome
}

// ShuffledCapable is the dispatch trial order: a fresh random permutation
// filtered to servers advertising the capability.
func (d *Dispatcher) ShuffledCapable(c serverpool.Capability) []serverpool.Descriptor {
	var out []serverpool.Descriptor
	for _, server := range d.pool.ShuffledOrder() {
		if server.Has(c) {
			out = append(out, server)
		}
	}
	return out
}
