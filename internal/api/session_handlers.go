package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/id/uuid"
)

type saveRacesRequest struct {
	RaceIDs *civic.RaceIDs `json:"raceIds"`
	Address string         `json:"address"`
}

type sourceRaceRequest struct {
	RaceType string `json:"raceType"`
	RaceID   string `json:"raceId"`
}

// sessionID returns the session id carried by the request cookie, or "".
func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.cfg.Session.CookieName)
	if err != nil || !uuid.Valid(c.Value) {
		return ""
	}
	return c.Value
}

// ensureSession returns the request's session id, issuing a cookie for a new one when absent.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if sid := s.sessionID(r); sid != "" {
		return sid, nil
	}
	sid, err := s.deps.Sessions.NewSessionID()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}

func (s *Server) sessionsEnabled(w http.ResponseWriter) bool {
	if s.deps.Sessions == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sessions unavailable")
		return false
	}
	return true
}

func (s *Server) getSavedRaces(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	saved := s.deps.Sessions.LoadRaces(r.Context(), s.sessionID(r))
	if saved == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) putSavedRaces(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	var req saveRacesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RaceIDs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sid, err := s.ensureSession(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	saved, err := s.deps.Sessions.SaveRaces(r.Context(), sid, req.RaceIDs, req.Address)
	if err != nil {
		s.logger.Error("save races failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save races")
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteSavedRaces(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	if err := s.deps.Sessions.ClearRaces(r.Context(), s.sessionID(r)); err != nil {
		s.logger.Error("clear races failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not clear races")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSourceRace(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	src := s.deps.Sessions.LoadSourceRace(r.Context(), s.sessionID(r))
	if src == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, src)
}

func (s *Server) putSourceRace(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	var req sourceRaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.RaceType) == "" || strings.TrimSpace(req.RaceID) == "" {
		s.writeError(w, http.StatusBadRequest, "raceType and raceId are required")
		return
	}
	sid, err := s.ensureSession(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	src, err := s.deps.Sessions.SaveSourceRace(r.Context(), sid, req.RaceType, req.RaceID)
	if err != nil {
		s.logger.Error("save source race failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save source race")
		return
	}
	s.writeJSON(w, http.StatusOK, src)
}

func (s *Server) deleteSourceRace(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	if err := s.deps.Sessions.ClearSourceRace(r.Context(), s.sessionID(r)); err != nil {
		s.logger.Error("clear source race failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not clear source race")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
