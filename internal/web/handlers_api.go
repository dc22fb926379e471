package web

import (
	"errors"
	"io"
	"net/http"

	"apctl/internal/connect"
	"apctl/internal/panel"
)

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.View().State())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.panel.Log().Entries()})
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": s.panel.ClearLog()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.Refresh(r.Context()); err != nil {
		s.writeOpError(w, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, s.panel.View().State())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.panel.Scan(r.Context())
	if err != nil {
		s.writeOpError(w, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	res, err := s.panel.LoadClients(r.Context())
	if err != nil {
		s.writeOpError(w, "clients", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAuto toggles auto refresh, or sets it when the body carries
// {"enabled": bool}.
func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	err := decodeJSON(r, &req)
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var enabled bool
	if req.Enabled == nil {
		enabled = s.panel.ToggleAuto()
	} else {
		s.panel.SetAuto(*req.Enabled)
		enabled = *req.Enabled
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Server) handleInternet(w http.ResponseWriter, r *http.Request) {
	check, err := s.panel.TestInternet(r.Context())
	if err != nil {
		s.writeOpError(w, "internet", err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleServer(w http.ResponseWriter, r *http.Request) {
	line, err := s.panel.ActiveServer(r.Context())
	if err != nil {
		s.writeOpError(w, "server", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"server": line})
}

func (s *Server) handleConnectOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSID     string `json:"ssid"`
		Security string `json:"security"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.panel.OpenConnect(req.SSID, req.Security); err != nil {
		s.writeOpError(w, "connect open", err)
		return
	}
	writeJSON(w, http.StatusOK, s.panel.Session().View())
}

func (s *Server) handleConnectSubmit(w http.ResponseWriter, r *http.Request) {
	var form panel.ConnectForm
	if err := decodeJSON(r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.panel.SubmitConnect(r.Context(), form)
	if err != nil {
		s.writeOpError(w, "connect", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  res,
		"session": s.panel.Session().View(),
	})
}

func (s *Server) handleConnectCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.CancelConnect(); err != nil {
		s.writeOpError(w, "connect cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, s.panel.Session().View())
}

func (s *Server) handleConnectDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.DismissConnect(); err != nil {
		s.writeOpError(w, "connect dismiss", err)
		return
	}
	writeJSON(w, http.StatusOK, s.panel.Session().View())
}

// writeOpError maps panel errors to status codes. Anything unclassified
// came from the appliance.
func (s *Server) writeOpError(w http.ResponseWriter, op string, err error) {
	var validation *connect.ValidationError
	status := http.StatusBadGateway
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.Is(err, connect.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, panel.ErrNoActiveServer):
		status = http.StatusNotFound
	}
	if status == http.StatusBadGateway {
		s.logger.Warn("operation failed", "op", op, "err", err)
	}
	writeJSONError(w, status, err.Error())
}
