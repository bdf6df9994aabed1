package model

import (
	"encoding/json"
	"fmt"
)

// CandidateStatus 批次項目的處理結果
type CandidateStatus string

const (
	StatusSuccess          CandidateStatus = "success"
	StatusCorrected        CandidateStatus = "corrected"
	StatusSkippedDuplicate CandidateStatus = "skipped_to_save_tokens"
	StatusDuplicate        CandidateStatus = "DUPLICADO_DETECTADO"
	StatusFailed           CandidateStatus = "generation_failed"
	StatusAIError          CandidateStatus = "ai_error"
)

// OK 是否為可入庫的成功結果
func (s CandidateStatus) OK() bool {
	return s == StatusSuccess || s == StatusCorrected
}

// Candidate 生成流程的暫存結果，不直接持久化
type Candidate struct {
	Record              Record          `json:"-"`
	RequestedIngredient string          `json:"requested_ingredient,omitempty"`
	Status              CandidateStatus `json:"status"`
	Error               string          `json:"error,omitempty"`
	AIProvider          string          `json:"ai_provider,omitempty"`
}

// MarshalJSON 將記錄欄位與處理資訊攤平成同一個物件
func (c Candidate) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if c.Record != nil {
		data, err := json.Marshal(c.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal record: %w", err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("flatten record: %w", err)
		}
	}
	if c.RequestedIngredient != "" {
		out["requested_ingredient"] = c.RequestedIngredient
	}
	out["status"] = c.Status
	if c.Error != "" {
		out["error"] = c.Error
	}
	if c.AIProvider != "" {
		out["ai_provider"] = c.AIProvider
	}
	return json.Marshal(out)
}

// NewCandidate 建立成功的候選結果
func NewCandidate(rec Record, provider string) Candidate {
	return Candidate{Record: rec, Status: StatusSuccess, AIProvider: provider}
}

// FailedCandidate 建立失敗或略過的候選結果
func FailedCandidate(requested string, status CandidateStatus, err error) Candidate {
	c := Candidate{RequestedIngredient: requested, Status: status}
	if err != nil {
		c.Error = err.Error()
	}
	return c
}
