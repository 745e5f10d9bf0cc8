package dispatch

import (
	"github.com/morphlane/relaychat/llm"
	"github.com/morphlane/relaychat/providers/gemini"
	"github.com/morphlane/relaychat/providers/openai"
	"github.com/morphlane/relaychat/serverpool"
)

func defaultClientFactory(server serverpool.Descriptor) llm.Client {
	switch server.Driver {
	case serverpool.DriverGemini:
		return gemini.New(server.Endpoint, server.APIKey, server.Model)
	default:
		return openai.New(server.Endpoint, server.APIKey, server.Model)
	}
}
