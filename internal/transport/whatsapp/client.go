// Package whatsapp talks to Meta's WhatsApp Cloud API (Graph API): sending
// text replies, downloading inbound media, and parsing webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxMediaBytes caps media downloads. WhatsApp voice notes and photos are
// well under this; anything larger is rejected rather than buffered.
const maxMediaBytes = 25 << 20

type Client struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	phoneNumberID string
}

func NewClient(baseURL, accessToken, phoneNumberID string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		baseURL:       baseURL,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
	}
}

// SendText delivers a text message to the given phone number.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"text":              map[string]string{"body": body},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sending message: status %d: %s", resp.StatusCode, detail)
	}

	slog.DebugContext(ctx, "whatsapp message sent", "to", to, "chars", len(body))
	return nil
}

// DownloadMedia fetches inbound media in the Cloud API's two-step dance:
// first resolve the media ID to a short-lived URL, then download the bytes
// from it. Both requests carry the access token.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	metaURL := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building media lookup: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("looking up media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("looking up media %s: status %d", mediaID, resp.StatusCode)
	}

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, "", fmt.Errorf("decoding media lookup: %w", err)
	}

	fileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building media download: %w", err)
	}
	fileReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	fileResp, err := c.httpClient.Do(fileReq)
	if err != nil {
		return nil, "", fmt.Errorf("downloading media %s: %w", mediaID, err)
	}
	defer fileResp.Body.Close()

	if fileResp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("downloading media %s: status %d", mediaID, fileResp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(fileResp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading media %s: %w", mediaID, err)
	}
	if len(content) > maxMediaBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", mediaID, maxMediaBytes)
	}

	contentType := fileResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = meta.MimeType
	}

	slog.DebugContext(ctx, "whatsapp media downloaded", "media_id", mediaID, "bytes", len(content), "content_type", contentType)
	return content, contentType, nil
}
