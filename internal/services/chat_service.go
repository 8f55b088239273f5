// internal/services/chat_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardmeet/cardmeet-backend/internal/config"
)

// ChatProvisioner creates a communication channel for an accepted
// trade. It is the only externally-suspending call in the trade flow;
// a failure here must surface as a failure of the whole accept
// operation with no trade state change.
type ChatProvisioner interface {
	CreateTradeChannel(ctx context.Context, tradeID uuid.UUID, memberIDs []uuid.UUID) (string, error)
}

// StreamChatService provisions messaging channels on Stream. When
// mocks are enabled (or no credentials are configured) it hands back a
// deterministic channel id so the rest of the flow stays testable.
type StreamChatService struct {
	config *config.Config
	client *http.Client
}

func NewStreamChatService(cfg *config.Config) *StreamChatService {
	return &StreamChatService{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *StreamChatService) CreateTradeChannel(ctx context.Context, tradeID uuid.UUID, memberIDs []uuid.UUID) (string, error) {
	channelID := fmt.Sprintf("trade-%s", tradeID)

	if s.config.Chat.UseMocks || s.config.Chat.APIKey == "" {
		logrus.WithField("trade_id", tradeID).Debug("Mock chat channel created")
		return fmt.Sprintf("mock-channel-%s", tradeID), nil
	}

	members := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, id.String())
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"name":    fmt.Sprintf("Trade %s", tradeID),
			"members": members,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode channel payload: %w", err)
	}

	url := fmt.Sprintf("%s/channels/messaging/%s/query?api_key=%s",
		s.config.Chat.BaseURL, channelID, s.config.Chat.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build channel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.config.Chat.APISecret)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat provider returned status %d", resp.StatusCode)
	}

	return channelID, nil
}
