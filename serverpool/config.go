package serverpool

import (
	"fmt"

	"github.com/spf13/viper"
)

// FromViper loads the `servers` list from configuration:
//
//	servers:
//	  - name: pawan
//	    driver: openai
//	    endpoint: https://api.pawan.example
//	    api_key: pk-...
//	    model: gpt-3.5-turbo
//	    capabilities: [chat, transcription]
func FromViper() (*Pool, error) {
	var servers []Descriptor
	if err := viper.UnmarshalKey("servers", &servers); err != nil {
		return nil, fmt.Errorf("serverpool: parse servers config: %w", err)
	}
	return New(servers)
}
