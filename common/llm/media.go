package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
)

// MediaClient handles audio transcription and image description.
type MediaClient interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
	DescribeImage(ctx context.Context, image []byte, prompt string) (string, error)
}

var mimeToFilename = map[string]string{
	"audio/ogg":              "audio.ogg",
	"audio/ogg; codecs=opus": "audio.ogg",
	"audio/mpeg":             "audio.mp3",
	"audio/mp4":              "audio.m4a",
}

// Transcribe converts a voice note to text.
func (c *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	filename, ok := mimeToFilename[mimeType]
	if !ok {
		filename = "audio.ogg"
	}

	params := openai.AudioTranscriptionNewParams{
		Model: c.transcribeModel,
		File:  openai.File(bytes.NewReader(audio), filename, mimeType),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	start := time.Now()
	resp, err := c.openai.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	slog.DebugContext(ctx, "audio transcribed",
		"model", c.transcribeModel,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(audio))

	return resp.Text, nil
}

// DescribeImage asks the vision model for a textual description of the
// image, guided by prompt.
func (c *OpenAI) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	}

	params := openai.ChatCompletionNewParams{
		Model:     c.visionModel,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens: openai.Int(500),
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in vision response")
	}

	slog.DebugContext(ctx, "image described",
		"model", c.visionModel,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(image))

	return resp.Choices[0].Message.Content, nil
}
