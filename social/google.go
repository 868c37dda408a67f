package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// GoogleProvider performs the authorization-code exchange against Google.
type GoogleProvider struct {
	config     GoogleConfig
	httpClient *http.Client
}

// NewGoogleProvider creates a new Google provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{
		config:     cfg,
		httpClient: client,
	}
}

// Name identifies the provider.
func (p *GoogleProvider) Name() string {
	return "google"
}

// AuthCodeURL builds the Google consent-screen URL the browser is sent to.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.config.Scopes, " ")},
		"access_type":   {"offline"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// Token is the provider's token-endpoint response.
type Token struct {
	AccessToken string
	TokenType   string
	IDToken     string
	ExpiresAt   time.Time
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange swaps an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, providerError("exchange", resp.StatusCode, "invalid_response", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		desc := tokenResp.ErrorDesc
		if desc == "" {
			desc = tokenResp.Error
		}
		return nil, providerError("exchange", resp.StatusCode, desc, nil)
	}
	if tokenResp.IDToken == "" {
		return nil, providerError("exchange", resp.StatusCode, "missing id_token", nil)
	}

	expiresAt := time.Time{}
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		IDToken:     tokenResp.IDToken,
		ExpiresAt:   expiresAt,
	}, nil
}

func providerError(op string, status int, detail string, cause error) error {
	msg := fmt.Sprintf("google %s failed", op)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	if cause != nil {
		return goerrors.Wrap(cause, goerrors.CategoryOperation, msg).
			WithMetadata(map[string]any{"status": status})
	}
	return goerrors.New(msg, goerrors.CategoryOperation).
		WithMetadata(map[string]any{"status": status})
}
