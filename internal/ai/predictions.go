package ai

import (
	"EWasteAssistant/internal/service/vision"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// classifyPrompt просит модель вернуть ранжированный список предметов в JSON.
func classifyPrompt(maxPredictions int) string {
	return fmt.Sprintf(`Identify the main physical object in this image.
Return ONLY a JSON array with at most %d items, ordered by descending confidence:
[{"label": "<short object name>", "confidence": <number between 0 and 1>}]
No prose, no markdown.`, max(maxPredictions, 1))
}

type rawPrediction struct {
	Label       string   `json:"label"`
	ClassName   string   `json:"className"`
	Confidence  *float64 `json:"confidence"`
	Probability *float64 `json:"probability"`
}

// parsePredictions разбирает ответ модели. Модели часто оборачивают JSON в markdown
// или обрезают его, поэтому перед разбором ответ чинится через jsonrepair.
func parsePredictions(raw string) (vision.Result, error) {
	s := stripFences(raw)
	if s == "" {
		return nil, errors.New("empty model output")
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("repair model output: %w", err)
	}

	var items []rawPrediction
	if err := json.Unmarshal([]byte(repaired), &items); err != nil {
		var wrapped struct {
			Predictions []rawPrediction `json:"predictions"`
		}
		if werr := json.Unmarshal([]byte(repaired), &wrapped); werr != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		items = wrapped.Predictions
	}

	out := make(vision.Result, 0, len(items))
	for _, it := range items {
		p := vision.Prediction{Label: it.Label}
		if p.Label == "" {
			p.Label = it.ClassName
		}
		switch {
		case it.Confidence != nil:
			p.Confidence = *it.Confidence
		case it.Probability != nil:
			p.Confidence = *it.Probability
		}
		out = append(out, p)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // язык блока: ```json
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
