// Package seed loads the demo questionnaire into a fresh database.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinarc/ediary/internal/services/diary/storage"
)

//go:embed questionnaire.json
var questionnaireJSON []byte

type seedChoice struct {
	Text     string `json:"text"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type seedQuestion struct {
	Text     string       `json:"text"`
	Type     string       `json:"type"`
	Required bool         `json:"required"`
	Position int          `json:"position"`
	Choices  []seedChoice `json:"choices"`
}

type seedQuestionnaire struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	IsActive    bool           `json:"is_active"`
	Questions   []seedQuestion `json:"questions"`
}

// Load installs the embedded demo questionnaire. Loading is idempotent by
// questionnaire name, so repeated bootstraps never duplicate it.
func Load(ctx context.Context, store storage.QuestionnaireStore) error {
	var demo seedQuestionnaire
	if err := json.Unmarshal(questionnaireJSON, &demo); err != nil {
		return fmt.Errorf("decode seed questionnaire: %w", err)
	}

	_, err := store.GetQuestionnaireByName(ctx, demo.Name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check seed questionnaire: %w", err)
	}

	record := storage.Questionnaire{
		Name:        demo.Name,
		Description: demo.Description,
		Version:     demo.Version,
		IsActive:    demo.IsActive,
	}
	for _, question := range demo.Questions {
		q := storage.Question{
			Text:     question.Text,
			Type:     storage.QuestionType(question.Type),
			Required: question.Required,
			Position: question.Position,
		}
		for _, choice := range question.Choices {
			q.Choices = append(q.Choices, storage.Choice{
				Text:     choice.Text,
				Value:    choice.Value,
				Position: choice.Position,
			})
		}
		record.Questions = append(record.Questions, q)
	}
	if _, err := store.CreateQuestionnaire(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create seed questionnaire: %w", err)
	}
	return nil
}
