package endpoints

import (
	"time"

	"github.com/jackzampolin/slate/internal/api"
)

// Config holds settings for endpoints that need more than Services.
type Config struct {
	// StreamInterval is the websocket poll period (default 500ms).
	StreamInterval time.Duration
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Script and job endpoints
		&UploadEndpoint{},
		&ListJobsEndpoint{},
		&ScenesEndpoint{},
		&DeleteJobEndpoint{},

		// Analysis endpoints
		&AnalyzeEndpoint{},
		&JobStatusEndpoint{},
		&ResultsEndpoint{},
		&DownloadEndpoint{},
		&StreamEndpoint{Interval: cfg.StreamInterval},

		// Pricing endpoints
		&CostEndpoint{},
		&ModelsEndpoint{},
	}
}
