package statusserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robbyt/go-devicefsm/device"
)

// DeviceView is the JSON form of a device.Snapshot.
type DeviceView struct {
	State    string `json:"state"`
	Previous string `json:"previous"`
	Silent   bool   `json:"silent"`
	Faulted  bool   `json:"faulted"`
	Output   int    `json:"output"`
	FansOn   bool   `json:"fans_on"`
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Device   DeviceView        `json:"device"`
	Services map[string]string `json:"services,omitempty"`
}

// NewDeviceView converts a snapshot.
func NewDeviceView(s device.Snapshot) DeviceView {
	return DeviceView{
		State:    s.State.String(),
		Previous: s.Previous.String(),
		Silent:   s.Silent,
		Faulted:  s.State.IsFault(),
		Output:   s.Output,
		FansOn:   s.FansOn,
	}
}

// Handler returns the routes served by the runner.
//
//	GET  /state          device snapshot and supervised service states
//	GET  /metrics        Prometheus metrics, when a gatherer is configured
//	GET  /healthz        200 while the server is running
//	POST /events/{name}  deliver a device event, e.g. /events/cover_off
//	POST /silent         press the silent button
//	POST /reload         ask the supervisor to reload configuration
func (r *Runner) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", r.handleState)
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("POST /events/{name}", r.handleEvent)
	mux.HandleFunc("POST /silent", r.handleSilent)
	mux.HandleFunc("POST /reload", r.handleReload)
	if r.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
	return withRecovery(r.logger, withRequestLog(r.logger, mux))
}

func (r *Runner) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := StateResponse{Device: NewDeviceView(r.dev.Snapshot())}
	if r.services != nil {
		resp.Services = r.services()
	}
	r.writeJSON(w, http.StatusOK, resp)
}

func (r *Runner) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !r.IsRunning() {
		http.Error(w, r.GetState(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (r *Runner) handleEvent(w http.ResponseWriter, req *http.Request) {
	ev, err := device.ParseEvent(req.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.dev.Send(req.Context(), ev); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, device.ErrUnknownEvent) {
			status = http.StatusBadRequest
		}
		r.logger.Warn("Event not delivered", "event", ev, "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	r.logger.Debug("Event delivered", "event", ev)
	w.WriteHeader(http.StatusAccepted)
}

func (r *Runner) handleSilent(w http.ResponseWriter, _ *http.Request) {
	silent := r.dev.ToggleSilent()
	r.writeJSON(w, http.StatusOK, map[string]bool{"silent": silent})
}

func (r *Runner) handleReload(w http.ResponseWriter, _ *http.Request) {
	select {
	case r.reloadTrigger <- struct{}{}:
		r.logger.Info("Reload requested over HTTP")
	default:
		r.logger.Debug("Reload already pending")
	}
	w.WriteHeader(http.StatusAccepted)
}

func (r *Runner) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.logger.Error("Failed to write response", "error", err)
	}
}
