package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// GraphSender delivers mail via the Microsoft Graph sendMail endpoint using
// the OAuth2 client-credentials flow.
type GraphSender struct {
	tenantID     string
	clientID     string
	clientSecret string
	from         string
	baseURL      string
	tokenURL     string
	http         *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// GraphOption configures the Graph sender.
type GraphOption func(*GraphSender)

// WithBaseURL sets a custom Graph API base URL (for testing).
func WithBaseURL(url string) GraphOption {
	return func(s *GraphSender) {
		s.baseURL = url
	}
}

// WithTokenURL sets a custom token endpoint (for testing).
func WithTokenURL(url string) GraphOption {
	return func(s *GraphSender) {
		s.tokenURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GraphOption {
	return func(s *GraphSender) {
		s.http = hc
	}
}

// NewGraphSender creates a Graph mail sender for the given app registration.
func NewGraphSender(tenantID, clientID, clientSecret, from string, opts ...GraphOption) *GraphSender {
	s := &GraphSender{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		from:         from,
		baseURL:      "https://graph.microsoft.com/v1.0",
		tokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// accessToken returns a cached token, refreshing when within a minute of
// expiry.
func (s *GraphSender) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.tokenExp) > time.Minute {
		return s.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "graph: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "graph: token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "graph: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("graph: token status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "graph: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("graph: empty access token")
	}

	s.token = tok.AccessToken
	s.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return s.token, nil
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// Send delivers the message with one retry on transient status codes.
func (s *GraphSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return eris.New("graph: message has no recipient")
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	var payload graphMessage
	payload.Message.Subject = msg.Subject
	payload.Message.Body.ContentType = "Text"
	payload.Message.Body.Content = msg.Body
	var rcpt graphRecipient
	rcpt.EmailAddress.Address = msg.To
	payload.Message.ToRecipients = []graphRecipient{rcpt}
	payload.SaveToSentItems = true

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "graph: marshal message")
	}

	sendURL := fmt.Sprintf("%s/users/%s/sendMail", s.baseURL, url.PathEscape(from))

	const maxAttempts = 3
	backoff := 1 * time.Second
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := s.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "graph: create send request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "graph: send request failed")
		} else {
			respBody, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusAccepted {
				return nil
			}
			lastErr = eris.Errorf("graph: send status %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
