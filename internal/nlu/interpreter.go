package nlu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldops.app/incidentbot/common/llm"
	"fieldops.app/incidentbot/internal/convo"
)

const interpretTimeout = 15 * time.Second

const interpreterSystemPrompt = `El operador eligió una opción de una lista numerada, pero no respondió con un número.
Decide a cuál opción se refiere su respuesta.
Devuelve el índice (empezando en 1) de la opción elegida.
Si la respuesta rechaza explícitamente todas las opciones, devuelve 0 con rejects_all en true.
Si no puedes determinar a qué opción se refiere, devuelve 0 con rejects_all en false.`

type interpretResult struct {
	Choice     int  `json:"choice" jsonschema_description:"1-based index of the chosen option, 0 when no option is chosen"`
	RejectsAll bool `json:"rejects_all" jsonschema_description:"True only when the reply explicitly rejects every option"`
}

var interpretSchema = llm.GenerateSchema[interpretResult]()

// Interpreter resolves free-form menu replies against presented candidates.
type Interpreter struct {
	client llm.Client
}

func NewInterpreter(client llm.Client) *Interpreter {
	return &Interpreter{client: client}
}

func (i *Interpreter) Interpret(ctx context.Context, reply string, candidates []convo.Candidate) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, interpretTimeout)
	defer cancel()

	var sb strings.Builder
	for idx, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", idx+1, c.Label, c.Code)
	}

	userPrompt := fmt.Sprintf("Opciones:\n%s\nRespuesta del operador:\n%s", sb.String(), reply)

	var result interpretResult
	temp := 0.0
	_, err := i.client.Chat(ctx, llm.Request{
		SystemPrompt: interpreterSystemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "menu_choice",
		Schema:       interpretSchema,
		MaxTokens:    50,
		Temperature:  &temp,
	}, &result)
	if err != nil {
		return convo.ChoiceUnknown, fmt.Errorf("interpreting choice: %w", err)
	}

	if result.RejectsAll {
		return convo.ChoiceNone, nil
	}
	if result.Choice < 1 || result.Choice > len(candidates) {
		return convo.ChoiceUnknown, nil
	}
	return result.Choice - 1, nil
}
