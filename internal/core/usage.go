package core

import (
	"cmp"
	"slices"
)

// UsageSummary aggregates AI usage for one model.
type UsageSummary struct {
	Model            string  `json:"model"`
	Requests         int     `json:"requests"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	CostUSD          float64 `json:"costUsd"`
}

// SummarizeUsage totals rows per model, most expensive first with ties
// broken by model name.
func SummarizeUsage(rows []UsageLog) []UsageSummary {
	byModel := make(map[string]*UsageSummary)
	for _, r := range rows {
		sum, ok := byModel[r.Model]
		if !ok {
			sum = &UsageSummary{Model: r.Model}
			byModel[r.Model] = sum
		}
		sum.Requests++
		sum.PromptTokens += int64(r.PromptTokens)
		sum.CompletionTokens += int64(r.CompletionTokens)
		sum.TotalTokens += int64(r.TotalTokens())
		sum.CostUSD += r.CostUSD
	}

	out := make([]UsageSummary, 0, len(byModel))
	for _, sum := range byModel {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b UsageSummary) int {
		if c := cmp.Compare(b.CostUSD, a.CostUSD); c != 0 {
			return c
		}
		return cmp.Compare(a.Model, b.Model)
	})
	return out
}
