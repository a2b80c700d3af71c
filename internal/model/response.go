package model

import "encoding/json"

type SessionResponse struct {
	MatchResultID string          `json:"match_result_id"`
	State         SessionState    `json:"state"`
	SourceURL     string          `json:"source_url,omitempty"`
	ChunksIndexed int             `json:"chunks_indexed"`
	Messages      []Message       `json:"messages"`
	Summary       SummarySnapshot `json:"summary"`
}

func NewSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		MatchResultID: s.MatchResultID,
		State:         s.State,
		SourceURL:     s.SourceURL,
		ChunksIndexed: s.ChunksIndexed,
		Messages:      s.Messages,
		Summary:       s.Summary,
	}
}

type TranscriptResponse struct {
	Messages []*Message `json:"messages"`
}

// PredictResponse mirrors the external prediction model's payload.
type PredictResponse struct {
	Probability   float64  `json:"probability"`
	Tier          string   `json:"tier"`
	Message       string   `json:"message"`
	BaselineShare *float64 `json:"baseline_share,omitempty"`
}

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Stage       string   `json:"stage,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
	FundingNeed *float64 `json:"funding_need,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Match is one scored project/program pairing from the matching engine.
type Match struct {
	ProgramID   string `json:"program_id,omitempty"`
	ProgramName string `json:"program_name,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	Rank        *int   `json:"rank,omitempty"`
	RunAt       string `json:"run_at,omitempty"`

	ScoreRule     *float64 `json:"score_rule,omitempty"`
	ScoreContent  *float64 `json:"score_content,omitempty"`
	ScoreGoal     *float64 `json:"score_goal,omitempty"`
	ScoreFinalRaw *float64 `json:"score_final_raw,omitempty"`
	ScoreFinalCal *float64 `json:"score_final_cal,omitempty"`
	RawDistance   *float64 `json:"raw_distance,omitempty"`

	SubsSector  *float64 `json:"subs_sector,omitempty"`
	SubsStage   *float64 `json:"subs_stage,omitempty"`
	SubsFunding *float64 `json:"subs_funding,omitempty"`

	Reasons         json.RawMessage `json:"reasons,omitempty"`
	Improvements    json.RawMessage `json:"improvements,omitempty"`
	EvidenceProject json.RawMessage `json:"evidence_project,omitempty"`
	EvidenceProgram json.RawMessage `json:"evidence_program,omitempty"`
}

type ProjectResponse struct {
	Project Project `json:"project"`
}

type MatchesResponse struct {
	Matches []Match `json:"matches"`
}
