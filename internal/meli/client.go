package meli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.mercadolibre.com"

// Config configures the marketplace API client
type Config struct {
	BaseURL string
	UserID  string
	Timeout time.Duration
}

// Client pushes campaign mutations to the marketplace advertising API. It
// implements the remote sync the action handlers use; tokens come from the
// store and requests fail fast when the user has no live token.
type Client struct {
	logger  *zap.Logger
	config  Config
	tokens  *TokenStore
	httpcli *http.Client
}

// NewClient creates a marketplace API client
func NewClient(logger *zap.Logger, config Config, tokens *TokenStore) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger.Named("meli"),
		config:  config,
		tokens:  tokens,
		httpcli: &http.Client{Timeout: config.Timeout},
	}
}

// PauseCampaign pauses a campaign upstream
func (c *Client) PauseCampaign(ctx context.Context, campaignID string) error {
	return c.putCampaign(ctx, campaignID, map[string]interface{}{"status": "paused"})
}

// SetBid updates a campaign's max CPC upstream
func (c *Client) SetBid(ctx context.Context, campaignID string, bid float64) error {
	return c.putCampaign(ctx, campaignID, map[string]interface{}{"max_cpc": bid})
}

// SetBudget updates a campaign's daily budget upstream
func (c *Client) SetBudget(ctx context.Context, campaignID string, budget float64) error {
	return c.putCampaign(ctx, campaignID, map[string]interface{}{"daily_budget": budget})
}

// putCampaign sends one partial campaign update
func (c *Client) putCampaign(ctx context.Context, campaignID string, fields map[string]interface{}) error {
	token, ok := c.tokens.Get(c.config.UserID)
	if !ok {
		return fmt.Errorf("no valid token for user %s", c.config.UserID)
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign update: %w", err)
	}

	url := fmt.Sprintf("%s/advertising/campaigns/%s", c.config.BaseURL, campaignID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpcli.Do(req)
	if err != nil {
		return fmt.Errorf("campaign update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("marketplace returned status %d: %s", resp.StatusCode, payload)
	}

	c.logger.Debug("Campaign synced upstream",
		zap.String("campaign_id", campaignID),
		zap.Int("status", resp.StatusCode))
	return nil
}
