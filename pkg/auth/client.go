// Package auth exchanges the probe's static credential for a bearer token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/utils"
	"github.com/google/uuid"
)

const defaultHTTPTimeout = 60 * time.Second

type Client struct {
	httpClient *http.Client
	tokenURL   string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewClient(tokenURL string, httpClient *http.Client) (*Client, error) {
	tokenURL = strings.TrimSpace(tokenURL)
	if tokenURL == "" {
		return nil, utils.WrapIfNotNil(errors.New("token url is required"))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		httpClient: httpClient,
		tokenURL:   tokenURL,
	}, nil
}

// FetchToken posts the credential as a form and returns the access_token from
// the JSON reply. Every failure is an authentication ProbeError; nothing is retried.
func (c *Client) FetchToken(ctx context.Context, credential model.Credential) (string, error) {
	log := logging.NewLogger(ctx)

	token, err := c.fetchToken(ctx, credential)
	if err != nil {
		log.Errorf("❌ Error fetching token: %v", err)
		return "", model.NewProbeError(model.ErrorKindAuthentication, utils.WrapIfNotNil(err))
	}

	log.Infof("✅ Token fetched successfully.")
	return token, nil
}

func (c *Client) fetchToken(ctx context.Context, credential model.Credential) (string, error) {
	form := url.Values{}
	form.Set("username", credential.Username)
	form.Set("password", credential.Password)

	httpRequest, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", err
	}
	httpRequest.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return "", err
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", err
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		message := strings.TrimSpace(string(responseBits))
		if message == "" {
			message = http.StatusText(httpResponse.StatusCode)
		}
		return "", fmt.Errorf("token endpoint returned %d: %s", httpResponse.StatusCode, message)
	}

	response := tokenResponse{}
	if err := json.Unmarshal(responseBits, &response); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	token := strings.TrimSpace(response.AccessToken)
	if token == "" {
		return "", errors.New("token response has no access_token")
	}
	return token, nil
}

// NewSession authenticates once and returns the session every probe in the
// suite shares. The run id is fresh per session.
func (c *Client) NewSession(ctx context.Context, credential model.Credential) (model.Session, error) {
	token, err := c.FetchToken(ctx, credential)
	if err != nil {
		return model.Session{}, err
	}

	return model.Session{
		Token:     token,
		RunID:     uuid.NewString(),
		FetchedAt: time.Now(),
	}, nil
}
