package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/lookup"
	"github.com/JakeFAU/wi-election-guide/internal/mapbox"
	"github.com/JakeFAU/wi-election-guide/internal/sheets"
)

// upstreamStatus maps a lookup failure to its response status and visitor-facing message.
func upstreamStatus(err error) (int, string) {
	switch {
	case lookup.IsValidation(err):
		for _, sentinel := range []error{
			mapbox.ErrAddressNotFound,
			mapbox.ErrNotStreetAddress,
			mapbox.ErrOutsideWisconsin,
			mapbox.ErrEmptyQuery,
		} {
			if errors.Is(err, sentinel) {
				return http.StatusUnprocessableEntity, sentinel.Error()
			}
		}
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, mapbox.ErrTokenMissing), errors.Is(err, sheets.ErrAPIKeyMissing):
		return http.StatusInternalServerError, "service is not configured"
	default:
		return http.StatusBadGateway, "upstream request failed"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := upstreamStatus(err)
	s.logger.Warn(op+" failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	s.writeError(w, status, msg)
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, mapbox.ErrEmptyQuery.Error())
		return
	}
	body, err := s.deps.Geocoder.Suggest(r.Context(), query)
	if err != nil {
		if errors.Is(err, mapbox.ErrTokenMissing) {
			s.writeError(w, http.StatusInternalServerError, mapbox.ErrTokenMissing.Error())
			return
		}
		s.fail(w, r, "geocode", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("write geocode response failed", zap.Error(err))
	}
}

func (s *Server) districts(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Geocoder.FindDistricts(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		s.fail(w, r, "districts", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Lookup.Lookup(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		s.fail(w, r, "lookup", err)
		return
	}
	if s.deps.Sessions != nil {
		if sid, err := s.ensureSession(w, r); err != nil {
			s.logger.Warn("issue session failed", zap.Error(err))
		} else if _, err := s.deps.Sessions.SaveRaces(r.Context(), sid, &result.RaceIDs, result.Address); err != nil {
			s.logger.Warn("save races failed", zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) news(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.News.Latest(r.Context()))
}

func (s *Server) raceTypes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Lookup.RaceTypes())
}

func (s *Server) statewideRaces(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Directory.StatewideRaces(r.Context()))
}

func (s *Server) races(w http.ResponseWriter, r *http.Request) {
	sheet := r.URL.Query().Get("sheet")
	if sheet == "" {
		s.writeError(w, http.StatusBadRequest, "sheet parameter is required")
		return
	}
	races, err := s.deps.Directory.Races(r.Context(), sheet)
	if err != nil {
		s.fail(w, r, "races", err)
		return
	}
	s.writeJSON(w, http.StatusOK, races)
}

func (s *Server) districtOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.deps.Lookup.DistrictOptions(r.Context(), chi.URLParam(r, "sheet"))
	if err != nil {
		s.fail(w, r, "district options", err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) raceByDistrict(w http.ResponseWriter, r *http.Request) {
	race, err := s.deps.Directory.RaceByDistrict(r.Context(), chi.URLParam(r, "district"), chi.URLParam(r, "sheet"))
	if err != nil {
		s.fail(w, r, "race by district", err)
		return
	}
	if race == nil {
		s.writeError(w, http.StatusNotFound, "race not found")
		return
	}
	s.writeJSON(w, http.StatusOK, race)
}

func (s *Server) raceByID(w http.ResponseWriter, r *http.Request) {
	race, err := s.deps.Directory.RaceByRaceID(r.Context(), chi.URLParam(r, "race_id"), chi.URLParam(r, "sheet"))
	if err != nil {
		s.fail(w, r, "race by id", err)
		return
	}
	if race == nil {
		s.writeError(w, http.StatusNotFound, "race not found")
		return
	}
	s.writeJSON(w, http.StatusOK, race)
}

func (s *Server) racePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, err := s.deps.Lookup.ResolveRacePath(r.Context(), q.Get("type"), q.Get("district"))
	switch {
	case errors.Is(err, lookup.ErrRaceTypeRequired),
		errors.Is(err, lookup.ErrDistrictRequired),
		errors.Is(err, lookup.ErrRaceIDNotFound):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.fail(w, r, "race path", err)
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"path": path})
	}
}

func (s *Server) racePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Lookup.RacePage(r.Context(), chi.URLParam(r, "race_path"), chi.URLParam(r, "race_id"))
	switch {
	case errors.Is(err, lookup.ErrUnknownRacePath), errors.Is(err, lookup.ErrRaceNotFound):
		s.writeError(w, http.StatusNotFound, "race not found")
	case err != nil:
		s.fail(w, r, "race page", err)
	default:
		s.writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) candidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.deps.Directory.Candidates(r.Context(), r.URL.Query().Get("sheet"))
	if err != nil {
		s.fail(w, r, "candidates", err)
		return
	}
	s.writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) candidateByRow(w http.ResponseWriter, r *http.Request) {
	id, err := sheets.ParseRowID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid candidate row")
		return
	}
	candidate, err := s.deps.Directory.CandidateByRow(r.Context(), id)
	if err != nil {
		s.fail(w, r, "candidate by row", err)
		return
	}
	if candidate == nil {
		s.writeError(w, http.StatusNotFound, "candidate not found")
		return
	}
	s.writeJSON(w, http.StatusOK, candidate)
}

func (s *Server) candidateByID(w http.ResponseWriter, r *http.Request) {
	candidate, err := s.deps.Directory.CandidateByCandidateID(r.Context(), chi.URLParam(r, "candidate_id"))
	if err != nil {
		s.fail(w, r, "candidate by id", err)
		return
	}
	if candidate == nil {
		s.writeError(w, http.StatusNotFound, "candidate not found")
		return
	}
	s.writeJSON(w, http.StatusOK, candidate)
}

func (s *Server) stories(w http.ResponseWriter, r *http.Request) {
	raceID := r.URL.Query().Get("race_id")
	if raceID == "" {
		s.writeJSON(w, http.StatusOK, s.deps.Directory.Stories(r.Context()))
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Directory.StoriesByRaceID(r.Context(), raceID))
}
