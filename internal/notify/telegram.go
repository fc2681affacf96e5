// Package notify pushes operational messages to the shop's Telegram chats.
// Staff rows carry the chat id; admins get the fan-out.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Notifier is the outbound message boundary. The mock keeps tests and
// botless deployments working.
type Notifier interface {
	Send(ctx context.Context, chatID, message string) error
	Broadcast(ctx context.Context, chatIDs []string, message string) (sent int, failed int)
}

// TelegramService sends messages through the Bot API.
type TelegramService struct {
	token  string
	client *http.Client
}

func NewTelegramService(token string) *TelegramService {
	return &TelegramService{
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *TelegramService) Send(ctx context.Context, chatID, message string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, data)
	}
	return nil
}

func (s *TelegramService) Broadcast(ctx context.Context, chatIDs []string, message string) (int, int) {
	sent, failed := 0, 0
	for _, id := range chatIDs {
		if err := s.Send(ctx, id, message); err != nil {
			log.Printf("[Notify] send to %s failed: %v", id, err)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// MockService logs instead of sending, for tests and deployments without a
// bot token.
type MockService struct{}

func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) Send(_ context.Context, chatID, message string) error {
	log.Printf("[Notify] (mock) to %s: %s", chatID, message)
	return nil
}

func (s *MockService) Broadcast(ctx context.Context, chatIDs []string, message string) (int, int) {
	for _, id := range chatIDs {
		s.Send(ctx, id, message)
	}
	return len(chatIDs), 0
}
