package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/session"
)

// AuthService implements session.AuthAPI over the HTTP auth endpoints. It
// uses a bare http.Client on purpose: the auth routes are public and the
// refresh call must never traverse the retrying Transport, which would
// recurse into the session layer.
type AuthService struct {
	http    *http.Client
	baseURL string
}

// NewAuthService targets baseURL. A nil client gets a 30s timeout default.
func NewAuthService(baseURL string, hc *http.Client) (*AuthService, error) {
	if baseURL == "" {
		return nil, coreerrors.NewValidation("baseURL", "required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, coreerrors.NewValidation("baseURL", "must be a valid URL")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &AuthService{http: hc, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

type authUserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponsePayload struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	User         *authUserPayload `json:"user"`
	Permissions  []string         `json:"permissions"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Login implements session.AuthAPI.
func (s *AuthService) Login(ctx context.Context, email, password string) (*session.AuthResponse, error) {
	return s.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register implements session.AuthAPI.
func (s *AuthService) Register(ctx context.Context, input session.RegistrationInput) (*session.AuthResponse, error) {
	return s.post(ctx, "/auth/register", map[string]string{
		"name":     input.Name,
		"email":    input.Email,
		"password": input.Password,
	})
}

// LoginSocial implements session.AuthAPI. The backend exchanges the
// provider identity for first-party tokens.
func (s *AuthService) LoginSocial(ctx context.Context, provider string, identity session.ExternalIdentity) (*session.AuthResponse, error) {
	return s.post(ctx, "/auth/social", map[string]string{
		"provider":  provider,
		"id":        identity.ID,
		"name":      identity.Name,
		"email":     identity.Email,
		"avatarUrl": identity.AvatarURL,
	})
}

// Refresh implements session.AuthAPI.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*session.AuthResponse, error) {
	return s.post(ctx, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
}

func (s *AuthService) post(ctx context.Context, path string, body any) (*session.AuthResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, mapAuthTransportError(err)
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return nil, mapAuthStatus(resp)
	}

	var decoded authResponsePayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding auth response: %v", coreerrors.ErrServerError, err)
	}
	if decoded.Token == "" {
		return nil, fmt.Errorf("%w: auth response missing token", coreerrors.ErrServerError)
	}

	out := &session.AuthResponse{
		Token:        decoded.Token,
		RefreshToken: decoded.RefreshToken,
		TokenExpiry:  decoded.ExpiresAt,
	}
	if decoded.User != nil {
		out.User = &session.Profile{
			ID:    decoded.User.ID,
			Name:  decoded.User.Name,
			Email: decoded.User.Email,
			Role:  decoded.User.Role,
		}
	}
	if len(decoded.Permissions) > 0 {
		out.Permissions = make(map[string]bool, len(decoded.Permissions))
		for _, p := range decoded.Permissions {
			out.Permissions[p] = true
		}
	}
	return out, nil
}

func mapAuthStatus(resp *http.Response) error {
	var detail errorPayload
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&detail)
	msg := detail.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", coreerrors.ErrInvalidCredentials, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", coreerrors.ErrForbidden, msg)
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", coreerrors.ErrValidation, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", coreerrors.ErrServerError, msg)
	}
	return fmt.Errorf("%w: status %d: %s", coreerrors.ErrServerError, resp.StatusCode, msg)
}

func mapAuthTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", coreerrors.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", coreerrors.ErrConnectionFailed, err)
}
