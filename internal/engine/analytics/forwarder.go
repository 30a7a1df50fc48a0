package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	SignatureHeader = "X-Linkroute-Signature"
	EventHeader     = "X-Linkroute-Event"
	DeliveryHeader  = "X-Linkroute-Delivery"
)

// Forwarder posts clicks to the external analytics service.
type Forwarder struct {
	url    string
	secret string
	client *http.Client
}

func NewForwarder(url, secret string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Forwarder{url: url, secret: secret, client: &http.Client{Timeout: timeout}}
}

func (f *Forwarder) Forward(ctx context.Context, c *Click) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, "click")
	req.Header.Set(DeliveryHeader, c.ID)
	if f.secret != "" {
		req.Header.Set(SignatureHeader, Sign(f.secret, payload))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics forward: HTTP %d", resp.StatusCode)
	}
	return nil
}
