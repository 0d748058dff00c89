package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trafficd/internal/core"
)

// locationView is the geographic position reported for each signal.
type locationView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// cycleView is the nominal cycle timing reported for each signal.  It is
// descriptive metadata only and nothing enforces it.
type cycleView struct {
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`
}

// signalView is one element of the /signals payload.
type signalView struct {
	ID                string              `json:"id"`
	Location          locationView        `json:"location"`
	CurrentLight      core.Color          `json:"currentLight"`
	EmergencyOverride bool                `json:"emergencyOverride"`
	NormalCycle       cycleView           `json:"normalCycle"`
	Countdown         int                 `json:"countdown"`
	Type              string              `json:"type"`
	Direction         core.DirectionGroup `json:"direction"`
	Status            string              `json:"status"`
}

// writeJSON serialises v with the success envelope already included in v.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error body: {"success":false,"error":msg}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// signalViews builds the /signals payload from a store snapshot.
func (s *Server) signalViews() []signalView {
	snaps, _ := s.store.Snapshot()
	views := make([]signalView, 0, len(snaps))
	for _, sn := range snaps {
		status := "normal"
		if sn.State.Override {
			status = "emergency_mode"
		}
		views = append(views, signalView{
			ID:                sn.ID,
			Location:          locationView{Latitude: sn.Cfg.Latitude, Longitude: sn.Cfg.Longitude},
			CurrentLight:      sn.State.Status,
			EmergencyOverride: sn.State.Override,
			NormalCycle:       cycleView{Red: core.NominalRedSeconds, Yellow: core.NominalYellowSeconds, Green: core.NominalGreenSeconds},
			Countdown:         core.CountdownSeconds,
			Type:              "intersection",
			Direction:         sn.State.Direction,
			Status:            status,
		})
	}
	return views
}

// signalsPayload marshals the /signals response body, which is also what the
// websocket feed pushes.
func (s *Server) signalsPayload() ([]byte, error) {
	return json.Marshal(map[string]any{"success": true, "signals": s.signalViews()})
}

// pushState broadcasts the current state to websocket clients.  Called after
// every successful mutation.
func (s *Server) pushState() {
	payload, err := s.signalsPayload()
	if err != nil {
		return
	}
	s.hub.broadcast(payload)
}

// handleSignals returns the full signal table.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "signals": s.signalViews()})
}

// handleSignalByID dispatches /signal/{id}, /signal/{id}/direction and
// /signal/{id}/status by splitting the path the same way for all three.
func (s *Server) handleSignalByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2:
		s.handleSetSignal(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "direction":
		s.handleSetSignalDirection(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "status":
		s.handleSignalStatus(w, r, parts[1])
	default:
		http.NotFound(w, r)
	}
}

// handleSetSignal applies a direct command to one signal.  A direct command
// always raises the override flag.
func (s *Server) handleSetSignal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	color, err := core.ParseColor(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if err := s.store.Set(id, color); err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("signal %s -> %s (direct)", id, color)
	s.pushState()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "signal": id, "status": color})
}

// handleSetSignalDirection applies a direction-scoped command.  A mismatch
// between the requested group and the signal's group is not an error: the
// command is deliberately skipped so that the same broadcast can be sent to
// every signal and only the relevant ones react.
func (s *Server) handleSetSignalDirection(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Direction string `json:"direction"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	color, err := core.ParseColor(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	applied, err := s.store.SetDirection(id, core.DirectionGroup(req.Direction), color)
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	if !applied {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "signal": id, "skipped": true, "reason": "direction_mismatch"})
		return
	}
	s.events.Log("signal %s [%s] -> %s", id, req.Direction, color)
	s.pushState()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "signal": id, "direction": req.Direction, "status": color})
}

// handleSignalStatus returns one signal's stored state.
func (s *Server) handleSignalStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	state, err := s.store.Get(id)
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"signal":  id,
		"state": map[string]any{
			"status":    state.Status,
			"direction": state.Direction,
			"override":  state.Override,
		},
	})
}

// handleSync applies a bulk status update without raising override flags.
// The reported count is the number of submitted entries, including unknown
// IDs that were skipped; existing clients depend on that tally.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Signals []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"signals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entries := make([]core.SyncEntry, 0, len(req.Signals))
	for _, in := range req.Signals {
		color, err := core.ParseColor(in.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		entries = append(entries, core.SyncEntry{ID: in.ID, Status: color})
	}
	attempted, applied, err := s.store.Sync(entries)
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("sync: %d submitted, %d applied", attempted, applied)
	s.pushState()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "synced": attempted})
}

// handleEmergencyActivate forces one signal green and every other red.  The
// direction defaults to SOUTH when the body omits it.
func (s *Server) handleEmergencyActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Direction string `json:"direction"`
	}
	// An empty body is accepted; the default direction applies.
	_ = json.NewDecoder(r.Body).Decode(&req)
	direction := req.Direction
	if direction == "" {
		direction = "SOUTH"
	}
	if err := s.store.ActivateEmergency(direction); err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("emergency activated for %s", direction)
	s.pushState()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "emergency_direction": direction})
}

// handleEmergencyDeactivate performs the full reset: every signal red with
// override cleared.  The pre-emergency state is not restored.
func (s *Server) handleEmergencyDeactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.DeactivateEmergency(); err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("emergency deactivated")
	s.pushState()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTestAllGreen drives every output green without touching the stored
// state, matching the demonstration behaviour of the original controller.
func (s *Server) handleTestAllGreen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.DriveAll(core.Green); err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("test: all green")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All green for 5 seconds"})
}

// handleTestAllRed drives every output red without touching the stored state.
func (s *Server) handleTestAllRed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.DriveAll(core.Red); err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.events.Log("test: all red")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All red"})
}

// handleTestCycle spawns the demonstration cycle and returns immediately.
// The cycle goroutine takes the store lock for each step and stops when the
// server shuts down.
func (s *Server) handleTestCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	go func() {
		if err := s.store.RunCycle(s.bg, 3*time.Second); err != nil {
			s.events.Log("test cycle aborted: %v", err)
		}
	}()
	s.events.Log("test: cycle started")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cycling through signals"})
}

// handleEvents returns the most recent event log lines.  Accepts an optional
// query parameter lines=n to limit the number of lines returned.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 200
	if linesParam := r.URL.Query().Get("lines"); linesParam != "" {
		if n, err := strconv.Atoi(linesParam); err == nil && n > 0 {
			limit = n
		}
	}
	lines, err := s.events.Tail(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to read event log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": lines})
}

// handleHealth is a trivial liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// replyStoreError maps store errors onto the API error contract: an unknown
// signal ID is a client error, anything else is a hardware write failure.
// A failed write may leave the physical state inconsistent with the recorded
// state, so the divergence is logged rather than swallowed.
func (s *Server) replyStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrUnknownSignal) {
		writeError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}
	s.events.Log("hardware write failure: %v (recorded state may diverge from outputs)", err)
	writeError(w, http.StatusInternalServerError, "hardware write failure")
}
