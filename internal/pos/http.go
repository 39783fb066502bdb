package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPAdapter reads open and closed checks from a vendor REST endpoint:
//
//	GET {base}/locations/{location}/checks?status=open|closed
//	Authorization: Bearer {api key}
//
// The vendor field names stay inside this file.
type HTTPAdapter struct {
	http *http.Client
	name string
}

// NewHTTPAdapter returns an adapter registered under name. The request
// deadline comes from the caller's context.
func NewHTTPAdapter(name string) *HTTPAdapter {
	return &HTTPAdapter{
		http: &http.Client{Timeout: 30 * time.Second},
		name: name,
	}
}

func (a *HTTPAdapter) Name() string { return a.name }

type vendorCheck struct {
	Table      string   `json:"table_number"`
	OrderID    string   `json:"order_id"`
	Total      float64  `json:"total"`
	BalanceDue *float64 `json:"balance_due"`
	Server     string   `json:"server_name"`
	OpenedAt   string   `json:"opened_at"`
	ClosedAt   string   `json:"closed_at"`
}

func (a *HTTPAdapter) Sync(ctx context.Context, creds Credentials) (Snapshot, error) {
	if strings.TrimSpace(creds.BaseURL) == "" {
		return Snapshot{}, errors.New("pos base url is empty")
	}
	if strings.TrimSpace(creds.LocationID) == "" {
		return Snapshot{}, errors.New("pos location id is empty")
	}
	open, err := a.fetch(ctx, creds, "open")
	if err != nil {
		return Snapshot{}, err
	}
	closed, err := a.fetch(ctx, creds, "closed")
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Open: open, Closed: closed}, nil
}

func (a *HTTPAdapter) fetch(ctx context.Context, creds Credentials, status string) ([]Check, error) {
	u := fmt.Sprintf("%s/locations/%s/checks?status=%s",
		strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(creds.LocationID), status)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	if creds.APIKey != "" {
		req.Header.Set("authorization", "Bearer "+creds.APIKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s checks http %d: %s", a.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Checks []vendorCheck `json:"checks"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s parse checks: %w", a.name, err)
	}

	out := make([]Check, 0, len(parsed.Checks))
	for _, vc := range parsed.Checks {
		c := Check{
			TableNumber: vc.Table,
			OrderID:     vc.OrderID,
			TotalCents:  cents(vc.Total),
			ServerName:  vc.Server,
			OpenedAt:    parseStamp(vc.OpenedAt),
			ClosedAt:    parseStamp(vc.ClosedAt),
		}
		if vc.BalanceDue != nil {
			c.BalanceDueCents = cents(*vc.BalanceDue)
		} else if status == "open" {
			c.BalanceDueCents = c.TotalCents
		}
		out = append(out, c)
	}
	return out, nil
}

func cents(amount float64) int64 { return int64(math.Round(amount * 100)) }

func parseStamp(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
