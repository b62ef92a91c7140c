package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/service"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps err to a status by category and returns the
// user-facing message.
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: core.UserMessage(err, core.UnknownErrorText)}

	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		resp.Code = domErr.Code
		switch domErr.Category {
		case core.ErrCatValidation:
			status = http.StatusUnprocessableEntity
		case core.ErrCatNotFound:
			status = http.StatusNotFound
		case core.ErrCatConflict:
			status = http.StatusConflict
		case core.ErrCatAuth:
			status = http.StatusBadGateway
		case core.ErrCatTimeout:
			status = http.StatusGatewayTimeout
		}
	}
	respondJSON(w, status, resp)
}

// decodeBody reads a JSON body. Other content types are refused so a
// cross-site form post cannot drive the API.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		respondError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.Session())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.History())
}

func (s *Server) handleToggleHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"visible": s.ctrl.ToggleHistory()})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"models":   s.ctrl.Models(),
		"selected": s.ctrl.Snapshot().Model,
	})
}

type selectModelRequest struct {
	Model string `json:"model"`
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req selectModelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ctrl.SelectModel(req.Model); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"model": req.Model})
}

func (s *Server) handleCapability(w http.ResponseWriter, _ *http.Request) {
	st := s.ctrl.Capability()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"installed": st.Installed,
		"version":   st.Version,
		"label":     st.Label(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.ctrl.Metrics()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"totals": m.Totals(),
		"models": m.Models(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req service.Request
	if !decodeBody(w, r, &req) {
		return
	}
	res := s.ctrl.Submit(r.Context(), req)
	if res.Outcome == service.OutcomeIgnored {
		respondJSON(w, http.StatusConflict, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type selectFileRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	var req selectFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	respondJSON(w, http.StatusOK, s.ctrl.SelectFile(req.Path))
}

func (s *Server) handleClearFile(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.SelectFile("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopy(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Copy(); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": s.ctrl.Snapshot().Status})
}

func (s *Server) handleToggleAuth(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ToggleAuth(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.ctrl.Session())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	dl, err := s.ctrl.Login(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dl)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Logout(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.ctrl.Session())
}

func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.OpenVerification(); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBilling(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.OpenBilling(); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	msg, err := s.ctrl.Install(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      msg,
		"needs_reload": core.NeedsReload(msg),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Reload(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.ctrl.Snapshot())
}
