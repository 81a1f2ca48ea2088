// Package chat runs the recommendation turn: persona-framed completion,
// structured recommendation extraction, catalog hydration, and the
// transactional persistence of both turn messages.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/ai"
)

// Recommendation is one structured pick parsed from the model response.
type Recommendation struct {
	MALID     int    `json:"mal_id"`
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
}

// jsonBlockPattern matches fenced json blocks. Only the first one is
// parsed; all of them are stripped from the display text.
var jsonBlockPattern = regexp.MustCompile("```json\\s*((?s:.*?))```")

// GenerateTurn produces the raw model response for one turn. Provider
// outages surface as UPSTREAM_UNAVAILABLE with a user-safe message.
func (s *Service) GenerateTurn(ctx context.Context, personaType string, userMessage string, history []ai.Message) (string, error) {
	prompt, ok := ai.GetPersonaPrompt(ai.PersonaType(personaType))
	if !ok {
		return "", apperrors.InvalidArgument("unknown persona type")
	}

	response, err := s.llm.Chat(ctx, ai.FormatMessages(prompt, userMessage, history))
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return "", apperrors.UpstreamUnavailable(
				"AI service is temporarily unavailable. Please try again later.", err)
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "completion failed")
	}
	return response, nil
}

// ParseRecommendations extracts structured picks from the first fenced
// json block of a model response. A response with no block, a malformed
// block, or no valid elements yields nil; extraction never fails a turn.
func ParseRecommendations(response string) []Recommendation {
	match := jsonBlockPattern.FindStringSubmatch(response)
	if match == nil {
		return nil
	}

	var payload struct {
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(match[1]), &payload); err != nil {
		return nil
	}

	// Elements are validated one by one so a single bad pick does not
	// discard the rest.
	recommendations := make([]Recommendation, 0, len(payload.Recommendations))
	for _, raw := range payload.Recommendations {
		var rec Recommendation
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.MALID <= 0 || rec.Title == "" {
			continue
		}
		recommendations = append(recommendations, rec)
	}
	if len(recommendations) == 0 {
		return nil
	}
	return recommendations
}

// DisplayMessage strips every fenced json block from a model response,
// leaving the prose the user actually reads.
func DisplayMessage(response string) string {
	return strings.TrimSpace(jsonBlockPattern.ReplaceAllString(response, ""))
}
