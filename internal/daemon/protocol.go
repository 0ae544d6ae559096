package daemon

import (
	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/controller"
)

// RPC method names.
const (
	MethodStart   = "start"
	MethodStatus  = "status"
	MethodCancel  = "cancel"
	MethodStop    = "stop"
	MethodCatalog = "catalog"
)

// Request represents a JSON-RPC request from a client.
type Request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// Response represents a JSON-RPC response to a client.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// StartParams contains parameters for the start method. Empty Targets uses
// the configured targets.
type StartParams struct {
	Targets []string `json:"targets,omitempty"`
}

// StartResult identifies the run created by start.
type StartResult struct {
	RunID string `json:"run_id"`
}

// StatusResponse contains daemon status information.
type StatusResponse struct {
	Status    string              `json:"status"`
	Run       controller.Snapshot `json:"run"`
	Uptime    string              `json:"uptime"`
	StartTime string              `json:"start_time"`
}

// CatalogResponse lists the stats a selection may use.
type CatalogResponse struct {
	Stats []catalog.StatDefinition `json:"stats"`
}
