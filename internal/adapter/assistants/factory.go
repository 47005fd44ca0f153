package assistants

import (
	"github.com/rs/zerolog/log"
)

// ModeMock selects the in-process mock client.
const ModeMock = "MOCK"

// NewAssistantsClient creates a client based on the configured mode.
// Mode MOCK returns a MockClient; anything else returns a real Client.
func NewAssistantsClient(mode string, opts Options) AssistantsClient {
	if mode == ModeMock {
		log.Info().Msg("INSIGHTS_MODE=MOCK detected, using mock assistants client")
		return NewMockClient()
	}
	return NewClient(opts)
}
