package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/npratt/reroll/internal/controller"
)

// handleRequest dispatches the request to the appropriate handler.
func (d *Daemon) handleRequest(ctx context.Context, req *Request) Response {
	switch req.Method {
	case MethodStart:
		return d.handleStart(ctx, req)
	case MethodStatus:
		return d.handleStatus()
	case MethodCancel:
		return d.handleCancel()
	case MethodStop:
		return d.handleStop()
	case MethodCatalog:
		return d.handleCatalog()
	default:
		return Response{Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// handleStart launches a run with the configured coordinates.
func (d *Daemon) handleStart(ctx context.Context, req *Request) Response {
	if d.controller == nil || d.catalog == nil {
		return Response{Error: "no controller available"}
	}

	var params StartParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{Error: fmt.Sprintf("invalid params: %v", err)}
	}

	runReq, err := controller.BuildRequest(d.config, d.catalog, params.Targets)
	if err != nil {
		return Response{Error: err.Error()}
	}
	h, err := d.controller.Start(ctx, runReq)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: StartResult{RunID: h.ID}}
}

// handleStatus returns the daemon status and the latest run snapshot.
func (d *Daemon) handleStatus() Response {
	if d.controller == nil {
		return Response{Error: "no controller available"}
	}

	snap := d.controller.Current()

	d.mu.RLock()
	startTime := d.startTime
	d.mu.RUnlock()

	return Response{
		Result: StatusResponse{
			Status:    string(snap.Status),
			Run:       snap,
			Uptime:    time.Since(startTime).Truncate(time.Second).String(),
			StartTime: startTime.Format(time.RFC3339),
		},
	}
}

// handleCancel trips the kill switch.
func (d *Daemon) handleCancel() Response {
	if d.controller == nil {
		return Response{Error: "no controller available"}
	}

	d.controller.RequestCancel()
	return Response{Result: "cancelling"}
}

// handleStop cancels any run and asks the serving process to exit.
func (d *Daemon) handleStop() Response {
	if d.controller != nil {
		d.controller.RequestCancel()
	}
	d.requestStop()
	return Response{Result: "stopping"}
}

// handleCatalog lists the stat catalog.
func (d *Daemon) handleCatalog() Response {
	if d.catalog == nil {
		return Response{Error: "no catalog available"}
	}
	return Response{Result: CatalogResponse{Stats: d.catalog.All()}}
}

// decodeParams converts the generic params value into out.
func decodeParams(params any, out any) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
