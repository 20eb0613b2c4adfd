package scanapi

// client.go — cliente HTTP del backend de escaneo.
//
// Cada request a /scan consume créditos del proveedor upstream, así que el
// cliente va frenado por un token bucket además de los retries con backoff.
// Los errores de negocio llegan como JSON {"error": "..."} y se propagan
// con el mensaje tal cual (FetchError) para que acabe intacto en el
// snapshot del orquestador.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	"golang.org/x/time/rate"
)

const (
	sportsPath     = "/sports"
	bookmakersPath = "/bookmakers"
	scanPath       = "/scan"

	// Ritmo conservador: 1 req/s con burst de 2. La cuota real se mide en
	// créditos, no en requests, pero esto evita ráfagas accidentales.
	requestsPerSec = 1
	burst          = 2

	maxRetries    = 2
	baseRetryWait = 500 * time.Millisecond
)

// FetchError es un fallo de negocio devuelto por el backend. Message llega
// del JSON de error y se muestra al usuario sin tocar.
type FetchError struct {
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

// Client implementa ports.ScanService contra el backend HTTP.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client apuntando al base URL dado (sin slash final).
func NewClient(base string) *Client {
	return &Client{
		// El scan de un deporte con props puede tardar bastante upstream
		http:    &http.Client{Timeout: 60 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(requestsPerSec, burst),
	}
}

// ListSports devuelve el catálogo de deportes activos.
func (c *Client) ListSports(ctx context.Context) (domain.SportsCatalog, error) {
	var out domain.SportsCatalog
	if err := c.get(ctx, c.base+sportsPath, &out); err != nil {
		return domain.SportsCatalog{}, fmt.Errorf("scanapi.ListSports: %w", err)
	}
	return out, nil
}

// ListBookmakers devuelve el catálogo de casas soportadas.
func (c *Client) ListBookmakers(ctx context.Context) ([]domain.Bookmaker, error) {
	var out struct {
		Bookmakers []domain.Bookmaker `json:"bookmakers"`
	}
	if err := c.get(ctx, c.base+bookmakersPath, &out); err != nil {
		return nil, fmt.Errorf("scanapi.ListBookmakers: %w", err)
	}
	return out.Bookmakers, nil
}

// Scan lanza un escaneo de un deporte.
func (c *Client) Scan(ctx context.Context, req domain.ScanRequest) (domain.ScanResult, error) {
	var out domain.ScanResult
	if err := c.post(ctx, c.base+scanPath, req, &out); err != nil {
		return domain.ScanResult{}, err
	}
	return out, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial. Los 4xx no se
// reintentan: son errores de negocio (créditos agotados, request inválido)
// y repetirlos solo quemaría más cuota.
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

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("scan backend server error, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			defer resp.Body.Close()
			return decodeError(resp)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// decodeError extrae el mensaje del body de error {"error": "..."}.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &FetchError{Status: resp.StatusCode, Message: payload.Error}
	}
	return &FetchError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("scan backend error %d", resp.StatusCode),
	}
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
