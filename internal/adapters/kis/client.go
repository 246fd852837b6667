package kis

// client.go — HTTP client del API open de Korea Investment & Securities.
//
// El API limita las llamadas por appkey (20 TR/seg en producción); los
// limiters van al 60% del límite documentado para dejar margen al resto de
// procesos que comparten la cuenta. El access token dura 24h y se renueva
// bajo demanda con un mutex para que solo una goroutine lo pida.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://openapi.koreainvestment.com:9443"

	// 20 TR/seg documentados → 12/seg efectivos.
	quoteRatePerSec = 12

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// Margen antes de la expiración real del token (24h) para renovarlo.
	tokenSafety = 10 * time.Minute
)

// Credentials son las credenciales del API (appkey/appsecret del .env).
type Credentials struct {
	AppKey    string
	AppSecret string
	Account   string
}

// Client es el HTTP client de KIS con rate limiting, retries y gestión
// automática del access token.
type Client struct {
	http    *http.Client
	baseURL string
	creds   Credentials
	limiter *rate.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient crea un Client con el base URL dado.
// Si baseURL está vacío usa el endpoint de producción.
func NewClient(baseURL string, creds Credentials) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		creds:   creds,
		limiter: rate.NewLimiter(quoteRatePerSec, 5),
	}
}

// token devuelve un access token válido, renovándolo si expiró.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.creds.AppKey,
		"appsecret":  c.creds.AppSecret,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("kis.token: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("kis.token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("kis.token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("kis.token: status %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("kis.token: decode: %w", err)
	}

	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSafety)
	slog.Debug("kis token refreshed", "expires_in", out.ExpiresIn)
	return c.accessToken, nil
}

// getQuote hace un GET a un endpoint de cotizaciones con el tr_id dado,
// rate limiting y retries.
func (c *Client) getQuote(ctx context.Context, path, trID string, params url.Values, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path + "?" + params.Encode()
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("authorization", "Bearer "+token)
		req.Header.Set("appkey", c.creds.AppKey)
		req.Header.Set("appsecret", c.creds.AppSecret)
		req.Header.Set("tr_id", trID)
		req.Header.Set("custtype", "P")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial, respetando el
// rate limiter antes de cada intento.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("kis request retried", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(raw))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
