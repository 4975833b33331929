package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"survey-api/internal/domain"
	"survey-api/internal/service"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

const (
	// LineIssuer is the iss claim of LINE Login ID tokens.
	LineIssuer = "https://access.line.me"
	// DefaultBaseURL is the LINE Platform API host.
	DefaultBaseURL = "https://api.line.me"
)

// Options configures the LINE token verifier
type Options struct {
	ChannelID     string
	ChannelSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

// Service implements the AuthService interface against LINE Login
type Service struct {
	channelID     string
	channelSecret string
	baseURL       string
	httpClient    *http.Client
	logger        *logger.Logger
}

// NewService creates a new auth service
func NewService(opts Options, logger *logger.Logger) service.AuthService {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		channelID:     opts.ChannelID,
		channelSecret: opts.ChannelSecret,
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        logger,
	}
}

// ValidateToken validates a LINE ID token or access token and returns the user profile
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.LineProfile, error) {
	s.logger.Debug("Validating token")

	if token == "" {
		return nil, errors.NewAuthenticationError("Missing token")
	}

	// ID tokens are JWTs (three segments separated by dots)
	if isJWTToken(token) {
		s.logger.Debug("Token identified as LINE ID token")
		return s.validateIDToken(token)
	}

	s.logger.Debug("Token identified as LINE access token")
	return s.validateAccessToken(ctx, token)
}

// validateIDToken verifies an HS256 ID token signed with the channel secret
func (s *Service) validateIDToken(tokenString string) (*domain.LineProfile, error) {
	if s.channelSecret == "" {
		s.logger.Error("LINE_CHANNEL_SECRET not configured")
		return nil, errors.NewAuthenticationError("ID token validation not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.channelSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(LineIssuer),
		jwt.WithAudience(s.channelID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to parse/validate LINE ID token")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid ID token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid ID token")
	}

	profile := &domain.LineProfile{
		UserID:      getStringValue(claims, "sub"),
		DisplayName: getStringValue(claims, "name"),
		PictureURL:  getStringValue(claims, "picture"),
		Email:       getStringValue(claims, "email"),
	}
	if profile.UserID == "" {
		s.logger.Error("No user identifier found in ID token")
		return nil, errors.NewAuthenticationError("Invalid ID token: no user identifier")
	}

	s.logger.WithField("user_id", profile.UserID).Debug("LINE ID token validated successfully")
	return profile, nil
}

type verifyResponse struct {
	Scope     string `json:"scope"`
	ClientID  string `json:"client_id"`
	ExpiresIn int64  `json:"expires_in"`
}

type profileResponse struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

// validateAccessToken checks the token belongs to this channel, then reads the profile
func (s *Service) validateAccessToken(ctx context.Context, token string) (*domain.LineProfile, error) {
	verifyURL := s.baseURL + "/oauth2/v2.1/verify?access_token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, errors.NewInternalError("Failed to create verify request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call LINE verify endpoint")
		return nil, errors.NewExternalError("Failed to validate token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.WithFields(map[string]interface{}{
			"status_code":   resp.StatusCode,
			"response_body": string(body),
		}).Warn("LINE verify endpoint rejected token")
		return nil, errors.NewAuthenticationError("Invalid or expired access token")
	}

	var verified verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		return nil, errors.NewInternalError("Failed to decode token information", err)
	}

	if verified.ClientID != s.channelID {
		s.logger.WithFields(map[string]interface{}{
			"expected_client_id": s.channelID,
			"actual_client_id":   verified.ClientID,
		}).Error("Token channel mismatch")
		return nil, errors.NewAuthenticationError("Token not intended for this application")
	}
	if verified.ExpiresIn <= 0 {
		return nil, errors.NewAuthenticationError("Token has expired")
	}

	return s.fetchProfile(ctx, token)
}

// fetchProfile reads /v2/profile with the user's access token
func (s *Service) fetchProfile(ctx context.Context, token string) (*domain.LineProfile, error) {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, s.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v2/profile", nil)
	if err != nil {
		return nil, errors.NewInternalError("Failed to create profile request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call LINE profile endpoint")
		return nil, errors.NewExternalError("Failed to get user profile", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.NewAuthenticationError("Invalid or expired access token")
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.WithField("status_code", resp.StatusCode).Error("LINE profile endpoint returned error")
		return nil, errors.NewExternalError("Failed to get user profile", fmt.Errorf("status %d", resp.StatusCode))
	}

	var p profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.NewInternalError("Failed to decode user profile", err)
	}
	if p.UserID == "" {
		return nil, errors.NewAuthenticationError("Invalid token: no user identifier")
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     p.UserID,
		"has_picture": p.PictureURL != "",
	}).Info("LINE access token validated successfully")

	return &domain.LineProfile{
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		PictureURL:    p.PictureURL,
		StatusMessage: p.StatusMessage,
	}, nil
}

// IsIDToken reports whether token looks like an ID token rather than an access token
func IsIDToken(token string) bool {
	return isJWTToken(token)
}

// isJWTToken checks if a token is a JWT (has 3 segments separated by dots)
func isJWTToken(token string) bool {
	if token == "" {
		return false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}

func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
