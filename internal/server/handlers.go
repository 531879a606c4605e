package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
	"github.com/xaenox/gamer-card/internal/steam"
	"github.com/xaenox/gamer-card/internal/storage"
)

type submitRequest struct {
	Profile string `json:"profile" validate:"required,max=256"`
}

type submitResponse struct {
	ID     uuid.UUID     `json:"id"`
	Status models.Status `json:"status"`
}

type analysisResponse struct {
	ID               uuid.UUID               `json:"id"`
	Profile          string                  `json:"profile"`
	Status           models.Status           `json:"status"`
	Progress         models.Progress         `json:"progress"`
	Error            string                  `json:"error,omitempty"`
	Guidance         string                  `json:"guidance,omitempty"`
	SteamID          string                  `json:"steam_id,omitempty"`
	Summary          *models.AnalysisSummary `json:"summary,omitempty"`
	Personality      *models.Personality     `json:"personality,omitempty"`
	Recommendations  []models.Recommendation `json:"recommendations,omitempty"`
	PortraitFallback bool                    `json:"portrait_fallback,omitempty"`
	CardURL          string                  `json:"card_url,omitempty"`
	PortraitURL      string                  `json:"portrait_url,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body",
			`Send a JSON object such as {"profile": "https://steamcommunity.com/id/name"}.`)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_, guidance := pipeline.Describe(steam.ErrInvalidReference)
		writeError(w, http.StatusBadRequest, "invalid profile", guidance)
		return
	}
	if _, err := steam.ParseReference(req.Profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), steam.Guidance(err))
		return
	}

	id := s.results.Create(req.Profile)
	s.running.Add(1)
	go s.execute(context.WithoutCancel(r.Context()), id, req.Profile)

	w.Header().Set("Location", "/api/v1/analyses/"+id.String())
	writeJSON(w, http.StatusAccepted, submitResponse{ID: id, Status: models.StatusRunning})
}

// execute runs one analysis detached from the submitting request
func (s *Server) execute(parent context.Context, id uuid.UUID, profile string) {
	defer s.running.Done()

	ctx, cancel := context.WithTimeout(parent, s.config.AnalysisTimeout)
	defer cancel()

	logger := s.logger.With(zap.String("analysis_id", id.String()))
	logger.Info("Analysis started", zap.String("profile", profile))

	result, err := s.runner.Run(ctx, profile, func(p models.Progress) {
		s.results.SetProgress(id, p)
	})
	if err != nil {
		message, guidance := pipeline.Describe(err)
		logger.Warn("Analysis failed", zap.Error(err))
		s.results.Fail(id, message, guidance)
		return
	}

	logger.Info("Analysis finished",
		zap.String("steam_id", result.SteamID),
		zap.String("tier", string(result.Personality.Tier)))
	s.results.Complete(id, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(rec))
}

func (s *Server) handleImage(pick func(*models.Analysis) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if rec.Status != models.StatusDone || rec.Analysis == nil {
			writeError(w, http.StatusConflict, "analysis not finished",
				"The card is not ready yet. Poll the analysis until its status is done.")
			return
		}

		img := pick(rec.Analysis)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(img)))
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img); err != nil {
			s.logger.Debug("Failed to write image", zap.Error(err))
		}
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (storage.Record, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, storage.ErrResultNotFound.Error(), "Check the analysis id.")
		return storage.Record{}, false
	}
	rec, err := s.results.Get(id)
	if errors.Is(err, storage.ErrResultNotFound) {
		writeError(w, http.StatusNotFound, err.Error(),
			"The analysis does not exist or has expired. Submit the profile again.")
		return storage.Record{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed", "Please try again in a moment.")
		return storage.Record{}, false
	}
	return rec, true
}

func newAnalysisResponse(rec storage.Record) analysisResponse {
	resp := analysisResponse{
		ID:        rec.ID,
		Profile:   rec.Profile,
		Status:    rec.Status,
		Progress:  rec.Progress,
		Error:     rec.Error,
		Guidance:  rec.Guidance,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if a := rec.Analysis; a != nil {
		base := "/api/v1/analyses/" + rec.ID.String()
		resp.SteamID = a.SteamID
		resp.Summary = &a.Summary
		resp.Personality = &a.Personality
		resp.Recommendations = a.Recommendations
		resp.PortraitFallback = a.PortraitFallback
		resp.CardURL = base + "/card.png"
		resp.PortraitURL = base + "/portrait.png"
	}
	return resp
}
