package nlu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldops.app/incidentbot/common/llm"
	"fieldops.app/incidentbot/internal/convo"
)

const extractTimeout = 20 * time.Second

const extractorSystemPrompt = `Eres un asistente que registra operadores de planta.
El operador se presenta en texto libre. Extrae su nombre y, si los menciona, su área, turno, línea y puesto.
Deja vacío cualquier campo que no se mencione. No inventes datos.`

type extractResult struct {
	Name  string `json:"name" jsonschema_description:"Operator's name as stated, empty if none given"`
	Area  string `json:"area" jsonschema_description:"Work area if mentioned"`
	Shift string `json:"shift" jsonschema_description:"Shift if mentioned"`
	Line  string `json:"line" jsonschema_description:"Production line if mentioned"`
	Role  string `json:"role" jsonschema_description:"Job role if mentioned"`
}

var extractSchema = llm.GenerateSchema[extractResult]()

// Extractor pulls a profile out of a free-text self-introduction.
type Extractor struct {
	client llm.Client
}

func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, freeText string) (convo.ExtractedProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	var result extractResult
	temp := 0.0
	_, err := e.client.Chat(ctx, llm.Request{
		SystemPrompt: extractorSystemPrompt,
		UserPrompt:   freeText,
		SchemaName:   "operator_profile",
		Schema:       extractSchema,
		MaxTokens:    300,
		Temperature:  &temp,
	}, &result)
	if err != nil {
		return convo.ExtractedProfile{}, fmt.Errorf("extracting profile: %w", err)
	}

	return convo.ExtractedProfile{
		Name:  strings.TrimSpace(result.Name),
		Area:  strings.TrimSpace(result.Area),
		Shift: strings.TrimSpace(result.Shift),
		Line:  strings.TrimSpace(result.Line),
		Role:  strings.TrimSpace(result.Role),
	}, nil
}
