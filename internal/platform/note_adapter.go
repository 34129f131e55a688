package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "postpipe/configs"
)

type noteAdapter struct {
	cfg    config.Platform
	client *http.Client
}

func NewNoteAdapter(cfg config.Platform) Adapter {
	return &noteAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *noteAdapter) Publish(ctx context.Context, content string, metadata map[string]any) (*PublishResult, error) {
	payload := map[string]any{
		"body":   content,
		"status": "published",
	}
	if title, ok := metadata["title"].(string); ok && title != "" {
		payload["name"] = title
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIBase+"/text_notes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("note API returned status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
			Key string `json:"key"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	id := result.Data.ID
	if id == "" {
		id = result.Data.Key
	}
	return &PublishResult{ExternalID: id}, nil
}
