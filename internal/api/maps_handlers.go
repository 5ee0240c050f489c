package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/maps"
)

const maxBoundsBody = 8 << 20

func (s *Server) mapConfig(w http.ResponseWriter, r *http.Request) {
	dt, err := civic.ParseDistrictType(chi.URLParam(r, "district_type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	cfg, err := s.deps.Maps.Build(dt, chi.URLParam(r, "district"), maps.Mode(q.Get("mode")), q.Get("style_id"), q.Get("source_layer"))
	switch {
	case errors.Is(err, civic.ErrInvalidDistrictType),
		errors.Is(err, maps.ErrInvalidDistrict),
		errors.Is(err, maps.ErrInvalidMode):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "build map config failed")
	default:
		s.writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) mapBounds(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBoundsBody))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	features, err := maps.DecodeFeatures(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid GeoJSON")
		return
	}
	s.writeJSON(w, http.StatusOK, maps.Bounds(features))
}
