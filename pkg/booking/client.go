// Package booking is a thin client for the establishment booking REST API.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPage          = 1
	defaultPageSize      = 50
	maxResponseSizeBytes = 4 << 20
)

// ErrStatus wraps non-2xx responses.
var ErrStatus = errors.New("booking api returned an error status")

// Config is read with the BOOKING prefix.
type Config struct {
	BaseURL         string        `split_words:"true" required:"true"`
	APIKey          string        `envconfig:"API_KEY" required:"true"`
	EstablishmentID string        `split_words:"true" required:"true"`
	Timeout         time.Duration `split_words:"true" default:"15s"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

type Client struct {
	baseURL         string
	apiKey          string
	establishmentID string
	httpClient      *http.Client
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("booking base url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          strings.TrimSpace(cfg.APIKey),
		establishmentID: strings.TrimSpace(cfg.EstablishmentID),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func (c *Client) ListProfessionals(ctx context.Context, page, pageSize int) ([]Professional, error) {
	q := pagination(page, pageSize)
	raw, err := c.do(ctx, http.MethodGet, "/profissionais", q, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[Professional](raw)
	if err != nil {
		return nil, fmt.Errorf("decode professionals: %w", err)
	}
	return items, nil
}

// ListProfessionalServices returns the services offered by one professional.
// ProfessionalID is stamped on every entry.
func (c *Client) ListProfessionalServices(ctx context.Context, professionalID int64, page, pageSize int) ([]Service, error) {
	q := pagination(page, pageSize)
	raw, err := c.do(ctx, http.MethodGet, "/profissionais/"+itoa(professionalID)+"/servicos", q, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[Service](raw)
	if err != nil {
		return nil, fmt.Errorf("decode professional services: %w", err)
	}
	for i := range items {
		if items[i].ProfessionalID == 0 {
			items[i].ProfessionalID = professionalID
		}
	}
	return items, nil
}

func (c *Client) ListServices(ctx context.Context, f ServiceFilter) ([]Service, error) {
	q := pagination(f.Page, f.PageSize)
	if v := strings.TrimSpace(f.Name); v != "" {
		q.Set("nome", v)
	}
	if v := strings.TrimSpace(f.Category); v != "" {
		q.Set("categoria", v)
	}
	if f.OnlyClientVisible != nil {
		q.Set("somenteVisiveisCliente", strconv.FormatBool(*f.OnlyClientVisible))
	}
	raw, err := c.do(ctx, http.MethodGet, "/servicos", q, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[Service](raw)
	if err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return items, nil
}

// CreateAppointment posts a fully populated request and returns the
// decoded API answer.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal appointment: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/agendamentos", nil, body)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode appointment: %w", err)
	}
	return out, nil
}

func (c *Client) ListAppointments(ctx context.Context, f AppointmentFilter) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("dataInicio", f.From)
	q.Set("dataFim", f.To)
	if f.CustomerID != nil {
		q.Set("clienteId", itoa(*f.CustomerID))
	}
	raw, err := c.do(ctx, http.MethodGet, "/agendamentos", q, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[map[string]any](raw)
	if err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build booking request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("estabelecimentoId", c.establishmentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute booking request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read booking response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s %s status=%d body=%s", ErrStatus, method, path, resp.StatusCode, string(raw))
	}
	return raw, nil
}

func pagination(page, pageSize int) url.Values {
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}
