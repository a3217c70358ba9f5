package tenders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dfsbridge/internal/domain"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultAPIVersion  = "2.3"
	defaultPrefixPath  = "tenders"

	// HeaderClientRequestID — ID запроса, который генерирует бридж.
	HeaderClientRequestID = "X-Client-Request-ID"

	// HeaderRequestID — ID запроса, который присваивает API площадки.
	HeaderRequestID = "X-Request-ID"
)

// Response — ответ API площадки на запрос тендера.
type Response struct {
	// Tender — разобранный документ тендера.
	Tender *domain.Tender

	// RequestID — значение X-Request-ID ответа.
	RequestID string

	// ClientRequestID — отправленный X-Client-Request-ID.
	ClientRequestID string

	StatusCode int
}

// Client — клиент API площадки закупок (только чтение тендеров).
//
// Запрос: GET {host}/api/{version}/{prefix}/{tender_id}.
// Каждый запрос несёт X-Client-Request-ID; X-Request-ID ответа
// возвращается вызывающему для цепочки correlation ID.
type Client struct {
	baseURL    string
	prefixPath string
	token      string
	httpClient *http.Client
}

// Config — конфигурация Client.
type Config struct {
	// Host — адрес API, например https://public.api.openprocurement.org
	Host string

	// Version — версия API (default: 2.3).
	Version string

	// PrefixPath — префикс ресурса (default: tenders).
	PrefixPath string

	// Token — токен доступа (опционально, Basic auth).
	Token string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration
}

// NewClient создаёт Client.
func NewClient(cfg Config) *Client {
	version := cfg.Version
	if version == "" {
		version = defaultAPIVersion
	}
	prefix := strings.Trim(cfg.PrefixPath, "/")
	if prefix == "" {
		prefix = defaultPrefixPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		baseURL:    fmt.Sprintf("%s/api/%s", strings.TrimRight(cfg.Host, "/"), version),
		prefixPath: prefix,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PrefixPath возвращает путь ресурса тендеров.
func (c *Client) PrefixPath() string {
	return c.baseURL + "/" + c.prefixPath
}

// GetTender загружает тендер по ID.
//
// 429 — StatusError с Code 429 (IsTooManyRequests), иной не-200 —
// StatusError, сетевая ошибка или таймаут — ErrRequest.
func (c *Client) GetTender(ctx context.Context, tenderID string) (*Response, error) {
	clientReqID := generateRequestID()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PrefixPath()+"/"+tenderID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set(HeaderClientRequestID, clientReqID)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.SetBasicAuth(c.token, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Code:      resp.StatusCode,
			Body:      truncate(string(body), 200),
			RequestID: resp.Header.Get(HeaderRequestID),
		}
	}

	tender, err := domain.ParseTender(body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Tender:          tender,
		RequestID:       resp.Header.Get(HeaderRequestID),
		ClientRequestID: clientReqID,
		StatusCode:      resp.StatusCode,
	}, nil
}

// Ping проверяет доступность API (HEAD на ресурс тендеров).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.PrefixPath(), nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// generateRequestID — ID в формате площадки: req-<uuid hex>.
func generateRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// truncate обрезает строку до maxLen символов.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
