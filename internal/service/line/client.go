// Package line talks to the LINE Platform on behalf of the survey API:
// friendship status with a user's access token and coupon push messages
// with the channel access token.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"survey-api/pkg/logger"
)

// DefaultBaseURL is the LINE Platform API host.
const DefaultBaseURL = "https://api.line.me"

// APIError is a non-2xx answer from the LINE Platform.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("line api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("line api: status %d: %s", e.StatusCode, e.Message)
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
}

// tokenClient returns an HTTP client sending token as a bearer credential.
func tokenClient(ctx context.Context, base *http.Client, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return DefaultBaseURL
	}
	return baseURL
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// FriendshipClient reads the friendship status between a user and the official account.
type FriendshipClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewFriendshipClient creates a friendship client
func NewFriendshipClient(baseURL string, httpClient *http.Client, logger *logger.Logger) *FriendshipClient {
	return &FriendshipClient{
		baseURL:    normalizeBaseURL(baseURL),
		httpClient: defaultHTTPClient(httpClient),
		logger:     logger,
	}
}

// GetFriendship reports whether the owner of accessToken has added the official account
func (c *FriendshipClient) GetFriendship(ctx context.Context, accessToken string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/friendship/v1/status", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create friendship request: %w", err)
	}

	resp, err := tokenClient(ctx, c.httpClient, accessToken).Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call friendship endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, newAPIError(resp)
	}

	var status struct {
		FriendFlag bool `json:"friendFlag"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("failed to decode friendship status: %w", err)
	}

	c.logger.WithField("friend_flag", status.FriendFlag).Debug("LINE friendship status fetched")
	return status.FriendFlag, nil
}

// MessageFunc renders the push message text for a coupon code.
type MessageFunc func(couponCode string) string

// DefaultMessage is the plain text pushed with a new coupon.
func DefaultMessage(couponCode string) string {
	return fmt.Sprintf("アンケートへのご回答ありがとうございました。\nクーポンコード: %s\n店頭でこのコードをご提示ください。", couponCode)
}

// PushSender delivers coupon codes with the Messaging API push endpoint.
type PushSender struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	message     MessageFunc
	newRetryKey func(userID, couponCode string) string
	logger      *logger.Logger
}

// PushOptions configures a PushSender
type PushOptions struct {
	BaseURL            string
	ChannelAccessToken string
	HTTPClient         *http.Client
	Message            MessageFunc
}

// NewPushSender creates a push sender
func NewPushSender(opts PushOptions, logger *logger.Logger) *PushSender {
	message := opts.Message
	if message == nil {
		message = DefaultMessage
	}
	return &PushSender{
		baseURL:     normalizeBaseURL(opts.BaseURL),
		accessToken: opts.ChannelAccessToken,
		httpClient:  defaultHTTPClient(opts.HTTPClient),
		message:     message,
		newRetryKey: couponRetryKey,
		logger:      logger,
	}
}

// retryKeyNamespace scopes the name-based UUIDs used as push retry keys.
var retryKeyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.line.me/v2/bot/message/push"))

// couponRetryKey derives the retry key from the user and coupon, so every
// attempt to deliver the same coupon carries the same key.
func couponRetryKey(userID, couponCode string) string {
	return uuid.NewSHA1(retryKeyNamespace, []byte(userID+":"+couponCode)).String()
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Deliver pushes the coupon to userID. The retry key is stable for a user and
// coupon pair, so a 409 answer means an earlier attempt for this coupon was
// already accepted and counts as delivered.
func (s *PushSender) Deliver(ctx context.Context, userID, couponCode string) error {
	body, err := json.Marshal(pushRequest{
		To:       userID,
		Messages: []textMessage{{Type: "text", Text: s.message(couponCode)}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	retryKey := s.newRetryKey(userID, couponCode)
	req.Header.Set("X-Line-Retry-Key", retryKey)

	start := time.Now()
	resp, err := tokenClient(ctx, s.httpClient, s.accessToken).Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push endpoint: %w", err)
	}
	defer resp.Body.Close()

	log := s.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"retry_key":   retryKey,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Info("Coupon push message sent")
		return nil
	case resp.StatusCode == http.StatusConflict:
		log.Info("Coupon push already accepted for retry key")
		return nil
	default:
		return newAPIError(resp)
	}
}
