// Package describe generates short link descriptions with an
// OpenAI-compatible chat-completions endpoint.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"quicklook/internal/domain"
)

const (
	DefaultModel    = "qwen-plus"
	DefaultEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultTimeout  = 30 * time.Second

	maxHintLen        = 400
	maxDescriptionLen = 120
	maxErrorBodyLen   = 200
	temperature       = 0.2
)

const systemPrompt = "你是短链平台的描述生成助手。你只能基于用户给出的URL字符串与提示信息推断页面用途；" +
	"不要臆造具体事实（例如价格、品牌、优惠、功能细节）。" +
	"输出必须是一段中文短描述（20-80字），纯文本，不要Markdown，不要换行，不要包含URL。"

const userPromptFormat = "URL：%s\n提示信息（可能为空）：%s\n\n" +
	"任务：生成一段用于短链 description 的短描述。\n" +
	"要求：\n" +
	"1) 如果无法从URL/提示信息判断页面用途，直接输出：需要补充描述\n" +
	"2) 若能判断，描述要中性、具体但不夸大，避免任何编造细节。\n"

var (
	ErrInvalidURL     = &domain.Error{Kind: domain.KindInvalidURL, Msg: "Invalid URL (must be http/https)"}
	ErrAPIKeyRequired = &domain.Error{Kind: domain.KindInvalidRequest, Msg: "API key is required"}
)

// Request is a single description job. Empty Model and Endpoint fall back to
// the client defaults.
type Request struct {
	URL      string
	Hint     string
	APIKey   string
	Model    string
	Endpoint string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls the LLM endpoint.
type Client struct {
	http     *http.Client
	model    string
	endpoint string
	log      logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithDefaults sets the model and endpoint used when a request leaves them empty.
func WithDefaults(model, endpoint string) ClientOption {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// NewClient creates a Client with a timeout-bound HTTP client.
func NewClient(timeout time.Duration, logger logrus.FieldLogger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http:     &http.Client{Timeout: timeout},
		model:    DefaultModel,
		endpoint: DefaultEndpoint,
		log:      logger.WithField("component", "describe"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe asks the model for a short description of req.URL.
func (c *Client) Describe(ctx context.Context, req Request) (string, error) {
	target := strings.TrimSpace(req.URL)
	if !domain.IsHTTPURL(target) {
		return "", ErrInvalidURL
	}
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return "", ErrAPIKeyRequired
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		endpoint = c.endpoint
	}

	hint := Sanitize(req.Hint, maxHintLen)
	if hint == "" {
		hint = "(空)"
	}

	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, target, hint)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", upstream("LLM request failed", errors.Wrap(err, "build request"))
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log := c.log.WithFields(logrus.Fields{"url": target, "model": model})

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("LLM request failed")
		return "", upstream("LLM request failed", errors.Wrap(err, "post chat completion"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		log.WithField("status", resp.StatusCode).Warn("LLM returned non-2xx status")
		return "", upstream(fmt.Sprintf("LLM request failed: HTTP %d %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", upstream("LLM response is empty or malformed", errors.Wrap(err, "decode chat response"))
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", upstream("LLM response is empty or malformed", nil)
	}

	description := Sanitize(out.Choices[0].Message.Content, maxDescriptionLen)
	log.WithField("length", len([]rune(description))).Debug("Description generated")
	return description, nil
}

func upstream(msg string, cause error) error {
	return &domain.Error{Kind: domain.KindUpstreamFailure, Msg: msg, Err: cause}
}
