package models

import (
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageResolve   Stage = "resolve"
	StageLibrary   Stage = "library"
	StageEnrich    Stage = "enrich"
	StageClassify  Stage = "classify"
	StageRecommend Stage = "recommend"
	StagePortrait  Stage = "portrait"
	StageCard      Stage = "card"
	StageDone      Stage = "done"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Analysis is the result of one pipeline run. It is returned to the caller
// and never shared between runs.
type Analysis struct {
	ID               uuid.UUID        `json:"id"`
	SteamID          string           `json:"steam_id"`
	CreatedAt        time.Time        `json:"created_at"`
	Summary          AnalysisSummary  `json:"summary"`
	Personality      Personality      `json:"personality"`
	Recommendations  []Recommendation `json:"recommendations"`
	PortraitFallback bool             `json:"portrait_fallback"`
	Portrait         []byte           `json:"-"`
	Card             []byte           `json:"-"`
}

// Progress describes where a run currently is. Done and Total are only set
// during StageEnrich.
type Progress struct {
	Stage Stage `json:"stage"`
	Done  int   `json:"done,omitempty"`
	Total int   `json:"total,omitempty"`
}
