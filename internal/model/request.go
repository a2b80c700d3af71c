package model

type InitRequest struct {
	MatchResultID string `json:"match_result_id"`
	HardReset     bool   `json:"hard_reset"`
}

type ChatRequest struct {
	MatchResultID string `json:"match_result_id" binding:"required"`
	Message       string `json:"message"`
}

type SummaryRequest struct {
	MatchResultID string `json:"match_result_id" binding:"required"`
}

type ResetRequest struct {
	MatchResultID string `json:"match_result_id" binding:"required"`
}

type PredictRequest struct {
	Sector string `json:"sector" binding:"required"`
	Region string `json:"region" binding:"required"`
	Size   string `json:"size" binding:"required"`
}

type VoiceAttachRequest struct {
	MatchResultID string `json:"match_result_id" binding:"required"`
}

type VoiceToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type VoiceTextRequest struct {
	Text string `json:"text" binding:"required"`
}
