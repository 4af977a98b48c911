package prompt

import (
	"EWasteAssistant/internal/service/vision"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptyResult распознавание не дало ни одного варианта, строить запрос не из чего.
var ErrEmptyResult = errors.New("prompt: empty classification result")

const template = `Based on the image analysis, this appears to be a %s (confidence: %d%%).

Please provide detailed information about:
1. The main materials and components used in manufacturing this product
2. A step-by-step explanation of how it's typically manufactured
3. Specific e-waste disposal and recycling considerations for this type of product, including:
   - Hazardous materials present
   - Proper disposal methods
   - Recycling options
   - Environmental impact
   - Local regulations (if applicable)`

// Synthesize строит запрос к ассистенту по самому уверенному варианту распознавания.
func Synthesize(result vision.Result) (string, error) {
	top, ok := result.Top()
	if !ok {
		return "", ErrEmptyResult
	}
	label := strings.TrimSpace(top.Label)
	if label == "" {
		return "", fmt.Errorf("%w: blank label", ErrEmptyResult)
	}
	return fmt.Sprintf(template, label, ConfidencePercent(top.Confidence)), nil
}

// ConfidencePercent переводит уверенность [0,1] в целые проценты с округлением до ближайшего.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}
