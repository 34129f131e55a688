package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	config "postpipe/configs"
)

type wordpressAdapter struct {
	cfg    config.Platform
	client *http.Client
}

func NewWordpressAdapter(cfg config.Platform) Adapter {
	return &wordpressAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *wordpressAdapter) Publish(ctx context.Context, content string, metadata map[string]any) (*PublishResult, error) {
	payload := map[string]any{
		"content": content,
		"status":  "publish",
	}
	if title, ok := metadata["title"].(string); ok && title != "" {
		payload["title"] = title
	}
	if category, ok := metadata["category"].(string); ok && category != "" {
		payload["categories"] = []string{category}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIBase+"/wp-json/wp/v2/posts", bytes.NewReader(body))
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
		return nil, fmt.Errorf("wordpress API returned status %d", resp.StatusCode)
	}

	var result struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &PublishResult{ExternalID: strconv.FormatInt(result.ID, 10)}, nil
}
