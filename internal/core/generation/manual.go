package generation

import (
	"context"
	"fmt"
	"strings"

	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// manualIngredients 逐一研究指定食材，結果與請求清單一一對應
func (s *Service) manualIngredients(ctx context.Context, req Request, names []string) (*Response, error) {
	slots, warning := s.slots(names)

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	provider := s.providerName()
	pacer := s.pace()
	data := make([]model.Candidate, 0, len(slots))
	attempted, providerFailures := 0, 0
	var expired error

	for i, sl := range slots {
		name := sl.name
		if sl.reject != nil {
			data = append(data, model.FailedCandidate(name, model.StatusFailed, sl.reject))
			continue
		}
		if m, dup := snap.FindMatch(model.IngredientNames{Name: name}, true); dup {
			common.LogInfo("食材已存在，略過研究", zap.String("requested", name), zap.String("existing", m.Name))
			c := model.FailedCandidate(name, model.StatusSkippedDuplicate, nil)
			c.Error = "ya existe en el catálogo: " + m.Name
			data = append(data, c)
			continue
		}

		attempted++
		if expired == nil {
			if err := pacer.Wait(ctx); err != nil {
				common.LogWarn("請求期限已到，其餘食材標記為 AI 錯誤",
					zap.Int("index", i+1), zap.Int("total", len(slots)), zap.Error(err))
				expired = err
			}
		}
		if expired != nil {
			providerFailures++
			data = append(data, model.FailedCandidate(name, model.StatusAIError, expired))
			continue
		}

		common.LogInfo("研究指定食材", zap.Int("index", i+1), zap.Int("total", len(slots)), zap.String("requested", name))
		raws, resp, err := s.research.GenerateContent(ctx, s.request(s.prompts.ManualIngredient(name, req.Category, req.Region)))
		if err != nil {
			status := model.StatusFailed
			if isProviderError(resp, err) {
				status = model.StatusAIError
				providerFailures++
			}
			common.LogWarn("食材研究失敗", zap.String("requested", name), zap.String("status", string(status)), zap.Error(err))
			data = append(data, model.FailedCandidate(name, status, err))
			continue
		}

		if len(raws) == 0 {
			data = append(data, model.FailedCandidate(name, model.StatusFailed, errEmptyRecord))
			continue
		}
		data = append(data, reconcile(name, raws[0], resp.Provider))
	}

	out := &Response{Data: data, AIProvider: provider, GenerationMode: ModeManual, Warning: warning}
	if attempted > 0 && providerFailures == attempted {
		s.fallbackManual(out, req.Category)
	}
	return out, nil
}

// slot 請求清單中的一個位置；reject 非 nil 時不送出研究
type slot struct {
	name   string
	reject error
}

// slots 標出空白名稱與超出上限的名稱，保留原始位置
func (s *Service) slots(names []string) ([]slot, string) {
	out := make([]slot, len(names))
	accepted, total := 0, 0
	for i, n := range names {
		out[i].name = strings.TrimSpace(n)
		switch {
		case out[i].name == "":
			out[i].reject = errBlankName
		case accepted >= s.opts.ManualMaxItems:
			out[i].reject = errOverLimit
			total++
		default:
			accepted++
			total++
		}
	}
	var warning string
	if total > accepted {
		warning = fmt.Sprintf("Se procesaron solo los primeros %d ingredientes de %d.", accepted, total)
	}
	return out, warning
}

// reconcile 解碼單筆結果；名稱一律以請求為準，首字不同時標記為已修正
func reconcile(requested string, raw []byte, provider string) model.Candidate {
	if signal, ok := aiErrorSignal(raw); ok {
		status := model.StatusFailed
		if strings.EqualFold(strings.TrimSpace(signal), string(model.StatusDuplicate)) {
			status = model.StatusDuplicate
		}
		c := model.FailedCandidate(requested, status, nil)
		c.Error = signal
		c.AIProvider = provider
		return c
	}

	decoded, err := model.DecodeRecord(model.TypeIngredient, raw)
	if err != nil {
		return model.FailedCandidate(requested, model.StatusFailed, err)
	}
	rec := decoded.(*model.IngredientRecord)
	if rec.Primary() == "" {
		return model.FailedCandidate(requested, model.StatusFailed, errEmptyRecord)
	}

	c := model.NewCandidate(rec, provider)
	c.RequestedIngredient = requested
	if !strings.EqualFold(firstWord(rec.Name), firstWord(requested)) {
		common.LogWarn("AI 回傳名稱與請求不符，改回請求名稱",
			zap.String("requested", requested),
			zap.String("returned", rec.Name))
		c.Status = model.StatusCorrected
	}
	rec.Name = requested
	return c
}

func firstWord(s string) string {
	fields := strings.Fields(common.NormalizeName(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
