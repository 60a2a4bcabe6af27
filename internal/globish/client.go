package globish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autobook/internal/config"
	"autobook/internal/models"

	"golang.org/x/time/rate"
)

// Client talks to the Globish student API.
type Client struct {
	baseURL     string
	catalogPath string
	bookingPath string
	loginPath   string
	language    string
	probe       models.Category

	baseHeader http.Header
	httpClient *http.Client
	limiter    *rate.Limiter
}

// BookResult is the decoded answer to a booking request.
type BookResult struct {
	Outcome    models.BookingOutcome
	StatusCode int
	Payload    json.RawMessage
}

type catalogResponse struct {
	Data struct {
		Classes []models.ClassListing `json:"classes"`
	} `json:"data"`
}

type bookResponse struct {
	StatusCode int `json:"statusCode"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data string `json:"data"`
}

// NewClient constructs a client from the globish config section.
func NewClient(cfg config.GlobishConfig) (*Client, error) {
	probe := models.Category{}
	for _, cat := range cfg.Categories {
		if cat.Name == cfg.ProbeOn {
			probe = cat
		}
	}
	if probe.Name == "" {
		return nil, fmt.Errorf("probe category %q is not configured", cfg.ProbeOn)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = models.DefaultHTTPTimeout * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit.RPS > 0 {
		limit = rate.Limit(cfg.RateLimit.RPS)
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		catalogPath: cfg.CatalogPath,
		bookingPath: strings.TrimSuffix(cfg.BookingPath, "/"),
		loginPath:   cfg.LoginPath,
		language:    cfg.Language,
		probe:       probe,
		baseHeader:  browserHeader(cfg.Origin, cfg.UserAgent, cfg.Language),
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, burst),
	}, nil
}

// Probe checks the token against the catalog of the probe category.
// It returns nil, ErrCredentialRejected or a *TransportError.
func (c *Client) Probe(ctx context.Context, sess Session) error {
	status, _, err := c.do(ctx, http.MethodGet, c.catalogURL(c.probe), sess.Header(), nil)
	if err != nil {
		return &TransportError{Op: "probe", Err: err}
	}
	if IsCredentialStatus(status) {
		return fmt.Errorf("probe: http %d: %w", status, ErrCredentialRejected)
	}
	if status < 200 || status >= 300 {
		return &TransportError{Op: "probe", StatusCode: status, Err: errors.New("unexpected status")}
	}
	return nil
}

// ListClasses fetches the catalog for one category in service order.
func (c *Client) ListClasses(ctx context.Context, sess Session, category models.Category) ([]models.ClassListing, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.catalogURL(category), sess.Header(), nil)
	if err != nil {
		return nil, &TransportError{Op: "list " + category.Name, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{Op: "list " + category.Name, StatusCode: status, Err: errors.New("unexpected status")}
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "list " + category.Name, StatusCode: status, Err: fmt.Errorf("decode catalog: %w", err)}
	}
	return resp.Data.Classes, nil
}

// Book submits a reservation. The embedded statusCode decides the outcome,
// the HTTP status is informational only.
func (c *Client) Book(ctx context.Context, sess Session, id models.ListingID) (BookResult, error) {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, c.bookingPath, url.PathEscape(id.String()))
	status, body, err := c.do(ctx, http.MethodPost, endpoint, sess.Header(), nil)
	if err != nil {
		return BookResult{}, &TransportError{Op: "book " + id.String(), Err: err}
	}

	var resp bookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return BookResult{}, &TransportError{Op: "book " + id.String(), StatusCode: status, Err: fmt.Errorf("decode booking: %w", err)}
	}

	result := BookResult{StatusCode: resp.StatusCode, Payload: json.RawMessage(body), Outcome: models.OutcomeRejected}
	if resp.StatusCode == models.BookedStatusCode {
		result.Outcome = models.OutcomeBooked
	}
	return result, nil
}

// Login exchanges the principal for a new bearer token.
func (c *Client) Login(ctx context.Context, principal models.Principal) (string, error) {
	data, err := json.Marshal(loginRequest{Username: principal.Username, Password: principal.Password})
	if err != nil {
		return "", err
	}
	header := c.baseHeader.Clone()
	header.Set("Content-Type", "application/json")

	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+c.loginPath, header, data)
	if err != nil {
		return "", &TransportError{Op: "login", Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &TransportError{Op: "login", StatusCode: status, Err: errors.New("login refused")}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &TransportError{Op: "login", StatusCode: status, Err: fmt.Errorf("decode login: %w", err)}
	}
	token := strings.TrimSpace(resp.Data)
	if token == "" {
		return "", &TransportError{Op: "login", StatusCode: status, Err: errors.New("empty token in response")}
	}
	return token, nil
}

func (c *Client) catalogURL(category models.Category) string {
	q := url.Values{}
	q.Set("type", category.Type)
	q.Set("campaign", category.Campaign)
	q.Set("language", c.language)
	return fmt.Sprintf("%s%s?%s", c.baseURL, c.catalogPath, q.Encode())
}

func (c *Client) do(ctx context.Context, method, endpoint string, header http.Header, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header = header

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}
