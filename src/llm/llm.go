package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultEndpoint         = "https://api.openai.com/v1/chat/completions"
	DefaultModel            = "gpt-4o"
	DefaultMaxTokens        = 80
	DefaultTemperature      = 0.7
	DefaultTransportTimeout = 10 * time.Second
	DefaultTimeout          = 12 * time.Second
	DefaultMaxInputRunes    = 4000

	maxResponseBytes = 1 << 20
	promptFormat     = "Explain the meaning or significance of this text in 2-3 sentences: \"%s\""
)

type Config struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	// TransportTimeout bounds connecting and waiting for the response.
	TransportTimeout time.Duration
	// Timeout is the supervisory deadline for the whole fetch.
	Timeout       time.Duration
	MaxInputRunes int
	// HTTPClient overrides the transport; its Timeout is left as configured.
	HTTPClient *http.Client
}

// Fetcher resolves an explanation for text. Implementations return a *Failure
// for every expected failure mode.
type Fetcher interface {
	Fetch(ctx context.Context, text, credential string) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// chatResponse mirrors the two envelopes the service sends. Pointers tell an
// absent field apart from an empty one.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message *string `json:"message"`
	} `json:"error"`
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.TransportTimeout <= 0 {
		cfg.TransportTimeout = DefaultTransportTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = DefaultMaxInputRunes
	}

	hc := cfg.HTTPClient
	if hc == nil {
		dialer := &net.Dialer{Timeout: cfg.TransportTimeout}
		hc = &http.Client{
			Timeout: cfg.TransportTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.TransportTimeout,
				ResponseHeaderTimeout: cfg.TransportTimeout,
			},
		}
	}
	return &Client{cfg: cfg, http: hc}
}

// Prompt wraps text in the explanation prompt, bounding its length.
func (c *Client) Prompt(text string) string {
	if utf8.RuneCountInString(text) > c.cfg.MaxInputRunes {
		text = string([]rune(text)[:c.cfg.MaxInputRunes])
	}
	return fmt.Sprintf(promptFormat, text)
}

// Fetch asks the service to explain text. An empty credential fails without
// touching the network. When the supervisory timeout expires first the request
// is cancelled and a Timeout failure returned; if ctx itself is cancelled the
// context error is returned as is.
func (c *Client) Fetch(ctx context.Context, text, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", &Failure{Kind: MissingCredential}
	}

	body, err := json.Marshal(ChatRequest{
		Model:       c.cfg.Model,
		Messages:    []Message{{Role: "user", Content: c.Prompt(text)}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", &Failure{Kind: TransportError, Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := c.do(jobCtx, body, credential)
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()

	select {
	case r := <-resCh:
		if r.err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return r.text, r.err
	case <-jobCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Failure{Kind: Timeout, Cause: jobCtx.Err()}
	}
}

func (c *Client) do(ctx context.Context, body []byte, credential string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Failure{Kind: TransportError, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", &Failure{Kind: HTTPStatus, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransport(err)
	}
	return decode(data)
}

func classifyTransport(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Failure{Kind: Timeout, Cause: err}
	}
	return &Failure{Kind: TransportError, Cause: err}
}

// decode extracts choices[0].message.content or the service's error message.
// Blank content and anything else, including a panic while decoding, is a
// MalformedResponse.
func decode(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &Failure{Kind: MalformedResponse, Cause: fmt.Errorf("panic decoding response: %v", r)}
		}
	}()

	var env chatResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &Failure{Kind: MalformedResponse, Cause: err}
	}
	if len(env.Choices) > 0 && env.Choices[0].Message != nil && env.Choices[0].Message.Content != nil {
		content := strings.TrimSpace(*env.Choices[0].Message.Content)
		if content == "" {
			return "", &Failure{Kind: MalformedResponse, Cause: errors.New("empty content")}
		}
		return content, nil
	}
	if env.Error != nil && env.Error.Message != nil {
		return "", &Failure{Kind: RemoteError, Message: *env.Error.Message}
	}
	return "", &Failure{Kind: MalformedResponse}
}
