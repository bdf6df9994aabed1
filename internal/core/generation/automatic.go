package generation

import (
	"context"
	"encoding/json"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// automaticIngredients 單次呼叫，由 AI 挑選食材
func (s *Service) automaticIngredients(ctx context.Context, req Request) (*Response, error) {
	count := s.clampCount(req.Count)
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := &Response{AIProvider: s.providerName(), GenerationMode: ModeAutomatic}
	var (
		raws []json.RawMessage
		resp *ai.Response
	)
	err = s.pace().Wait(ctx)
	if err == nil {
		p := s.prompts.AutomaticIngredients(count, req.Category, req.Region, snap.Names(s.prompts.AvoidLimit))
		raws, resp, err = s.research.GenerateContent(ctx, s.request(p))
	}
	if err != nil {
		common.LogError("自動生成失敗，改用備援資料", zap.Error(err))
		out.Data = fallbackIngredients(count, req.Category, snap)
		s.markFallback(out)
		return out, nil
	}

	out.AIProvider = resp.Provider
	out.Data = make([]model.Candidate, 0, count)
	for _, raw := range raws {
		if len(out.Data) >= count {
			break
		}
		rec, err := model.DecodeRecord(model.TypeIngredient, raw)
		if err != nil || rec.DisplayName() == "" {
			common.LogWarn("略過無法解碼的食材記錄", zap.Error(err))
			continue
		}
		out.Data = append(out.Data, model.NewCandidate(rec, resp.Provider))
	}
	return out, nil
}

// categories 生成分類；names 非空時為手動清單
func (s *Service) categories(ctx context.Context, req Request, names []string) (*Response, error) {
	mode := ModeAutomatic
	count := s.clampCount(req.Count)
	var (
		slots   []slot
		warning string
	)
	if len(names) > 0 {
		mode = ModeManual
		slots, warning = s.slots(names)
		names = names[:0:0]
		for _, sl := range slots {
			if sl.reject == nil {
				names = append(names, sl.name)
			}
		}
		count = len(names)
	}

	existing, err := s.repo.ListCategoryNames(ctx)
	if err != nil {
		return nil, common.ErrPersistence.Wrap(err)
	}

	out := &Response{AIProvider: s.providerName(), GenerationMode: mode, Warning: warning}
	var (
		raws []json.RawMessage
		resp *ai.Response
	)
	err = s.pace().Wait(ctx)
	if err == nil {
		raws, resp, err = s.research.GenerateContent(ctx, s.request(s.prompts.Categories(count, names, existing)))
	}
	if err != nil {
		common.LogError("分類生成失敗，改用備援資料", zap.Error(err))
		out.Data = withRejected(slots, fallbackCategories(count, names, existing))
		s.markFallback(out)
		if warning != "" {
			out.Warning = fallbackWarning + " " + warning
		}
		return out, nil
	}
	out.AIProvider = resp.Provider

	var records []*model.CategoryRecord
	for _, raw := range raws {
		rec, err := model.DecodeRecord(model.TypeCategory, raw)
		if err != nil || rec.DisplayName() == "" {
			continue
		}
		records = append(records, rec.(*model.CategoryRecord))
	}

	if mode == ModeAutomatic {
		for _, rec := range records {
			if len(out.Data) >= count {
				break
			}
			out.Data = append(out.Data, model.NewCandidate(rec, resp.Provider))
		}
		return out, nil
	}

	// 手動模式：每個請求名稱都有一筆結果
	byName := make(map[string]*model.CategoryRecord, len(records))
	for _, rec := range records {
		byName[common.NormalizeName(rec.Name)] = rec
	}
	accepted := make([]model.Candidate, 0, len(names))
	for i, name := range names {
		rec, ok := byName[common.NormalizeName(name)]
		if !ok && i < len(records) {
			rec, ok = records[i], true
		}
		if !ok {
			accepted = append(accepted, model.FailedCandidate(name, model.StatusFailed, errEmptyRecord))
			continue
		}
		c := model.NewCandidate(rec, resp.Provider)
		c.RequestedIngredient = name
		if common.NormalizeName(rec.Name) != common.NormalizeName(name) {
			c.Status = model.StatusCorrected
		}
		rec.Name = name
		accepted = append(accepted, c)
	}
	out.Data = withRejected(slots, accepted)
	return out, nil
}

// withRejected 依原始位置插回被拒絕的名稱；slots 為空時原樣回傳
func withRejected(slots []slot, accepted []model.Candidate) []model.Candidate {
	if len(slots) == 0 {
		return accepted
	}
	out := make([]model.Candidate, 0, len(slots))
	next := 0
	for _, sl := range slots {
		if sl.reject != nil {
			out = append(out, model.FailedCandidate(sl.name, model.StatusFailed, sl.reject))
			continue
		}
		if next < len(accepted) {
			out = append(out, accepted[next])
			next++
		}
	}
	return out
}

func (s *Service) clampCount(n int) int {
	if n <= 0 {
		n = s.opts.DefaultCount
	}
	if n > s.opts.MaxAutomaticCount {
		n = s.opts.MaxAutomaticCount
	}
	return n
}
