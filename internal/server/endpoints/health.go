package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok"}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		resp.Status = "degraded"
		resp.Store = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if _, err := store.List(r.Context(), jobs.ListFilter{Limit: 1}); err != nil {
		resp.Status = "degraded"
		resp.Store = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the job store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Store != "" {
				fmt.Printf("Store:  %s\n", resp.Store)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string          `json:"server"`
	Storage    string          `json:"storage"`
	Providers  ProvidersStatus `json:"providers"`
	ActiveJobs []string        `json:"active_jobs"`
}

// ProvidersStatus shows registered LLM providers.
type ProvidersStatus struct {
	LLM     []string `json:"llm"`
	Default string   `json:"default"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:     "running",
		Storage:    "not_initialized",
		ActiveJobs: []string{},
	}

	cfg := svcctx.ConfigFrom(ctx)
	if svcctx.StoreFrom(ctx) != nil {
		resp.Storage = cfg.Storage.Backend
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
		if client, err := registry.Default(); err == nil {
			resp.Providers.Default = client.Name()
		}
	}

	if runner := svcctx.RunnerFrom(ctx); runner != nil {
		resp.ActiveJobs = runner.Active()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response. Message and the format
// fields are set for upload failures.
type ErrorResponse struct {
	Error            string   `json:"error"`
	Message          string   `json:"message,omitempty"`
	Format           string   `json:"format,omitempty"`
	SupportedFormats []string `json:"supported_formats,omitempty"`
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
