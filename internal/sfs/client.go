package sfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/dfsbridge/internal/domain"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	// DefaultDeptID и DefaultDeptsProc — подразделение получателя,
	// в которое направляются все запросы бриджа.
	DefaultDeptID    = 1
	DefaultDeptsProc = 1
)

// Correspondence — канал корреспонденции с налоговой службой.
type Correspondence interface {
	// CheckRequest возвращает количество готовых документов по коду.
	CheckRequest(ctx context.Context, edrID string, deptID, deptsProc int) (*CheckResult, error)

	// ReceiveRequest забирает готовые документы.
	ReceiveRequest(ctx context.Context, edrID string, deptID, deptsProc int, caName, cert string) (*ReceiveResult, error)

	// SendRequest отправляет XML-запрос.
	SendRequest(ctx context.Context, payload []byte) error
}

// CheckResult — ответ на проверку входящей корреспонденции.
type CheckResult struct {
	QtDocs int `json:"qtDocs"`
}

// ReceiveResult — полученные документы.
type ReceiveResult struct {
	Docs []domain.ReceivedDocument `json:"docs"`
}

type checkBody struct {
	EDRID     string `json:"edr_id"`
	DeptID    int    `json:"dept_id"`
	DeptsProc int    `json:"depts_proc"`
}

type receiveBody struct {
	checkBody
	CAName string `json:"ca_name"`
	Cert   string `json:"cert"`
}

// Config — конфигурация Client.
type Config struct {
	// Host — адрес шлюза корреспонденции.
	Host string

	// User / Password — учётные данные (Basic auth).
	User     string
	Password string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration
}

// Client — HTTP-реализация Correspondence.
//
//	POST {host}/check   -> {"qtDocs": N}
//	POST {host}/receive -> {"docs": [...]}
//	POST {host}/send    (application/xml)
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
}

var _ Correspondence = (*Client)(nil)

// NewClient создаёт Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/"),
		user:       cfg.User,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CheckRequest реализует Correspondence.
func (c *Client) CheckRequest(ctx context.Context, edrID string, deptID, deptsProc int) (*CheckResult, error) {
	var result CheckResult
	body := checkBody{EDRID: edrID, DeptID: deptID, DeptsProc: deptsProc}
	if err := c.postJSON(ctx, "check", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReceiveRequest реализует Correspondence.
func (c *Client) ReceiveRequest(ctx context.Context, edrID string, deptID, deptsProc int, caName, cert string) (*ReceiveResult, error) {
	var result ReceiveResult
	body := receiveBody{
		checkBody: checkBody{EDRID: edrID, DeptID: deptID, DeptsProc: deptsProc},
		CAName:    caName,
		Cert:      cert,
	}
	if err := c.postJSON(ctx, "receive", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendRequest проверяет payload и отправляет его.
func (c *Client) SendRequest(ctx context.Context, payload []byte) error {
	if err := ValidateRequest(payload); err != nil {
		return err
	}
	_, err := c.do(ctx, "send", "application/xml", payload)
	return err
}

// Ping проверяет доступность шлюза.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{Op: "ping", Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrRequest, op, err)
	}
	body, err := c.do(ctx, op, "application/json", data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRequest, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrRequest, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
