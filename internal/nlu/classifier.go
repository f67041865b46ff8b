// Package nlu implements the language-understanding capabilities of the
// conversation: incident classification, profile extraction from
// free-text introductions, and interpretation of menu replies.
package nlu

import (
	"context"
	"fmt"
	"time"

	"fieldops.app/incidentbot/common/llm"
	"fieldops.app/incidentbot/internal/convo"
)

const classifyTimeout = 30 * time.Second

const classifierSystemPrompt = `Eres un clasificador de incidencias de planta industrial.
Recibes la descripción de un problema reportado por un operador y el catálogo de tipos de incidencia.
Devuelve los tipos del catálogo que mejor corresponden a la descripción, ordenados de mayor a menor confianza.
Devuelve como máximo 3 candidatos. Usa únicamente códigos que aparecen en el catálogo.
Si ningún tipo corresponde razonablemente, devuelve una lista vacía.`

type classifyResult struct {
	Candidates []classifyCandidate `json:"candidates" jsonschema_description:"Catalog matches ordered by confidence, best first"`
}

type classifyCandidate struct {
	Code       string  `json:"code" jsonschema_description:"Catalog code, exactly as listed"`
	Label      string  `json:"label" jsonschema_description:"Short human-readable name of the incident type"`
	Confidence float64 `json:"confidence" jsonschema_description:"Match confidence between 0 and 1"`
	Reason     string  `json:"reason" jsonschema_description:"One sentence explaining the match"`
}

var classifySchema = llm.GenerateSchema[classifyResult]()

// Classifier matches incident descriptions against the catalog using a
// structured chat completion.
type Classifier struct {
	client llm.Client
}

func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, description, catalogText string) ([]convo.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Catálogo de incidencias:\n%s\n\nDescripción del operador:\n%s", catalogText, description)

	var result classifyResult
	temp := 0.0
	_, err := c.client.Chat(ctx, llm.Request{
		SystemPrompt: classifierSystemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "incident_classification",
		Schema:       classifySchema,
		MaxTokens:    800,
		Temperature:  &temp,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("classifying description: %w", err)
	}

	candidates := make([]convo.Candidate, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		if c.Code == "" {
			continue
		}
		candidates = append(candidates, convo.Candidate{
			Code:       c.Code,
			Label:      c.Label,
			Confidence: c.Confidence,
			Reason:     c.Reason,
		})
	}
	return candidates, nil
}
