// Package notify sends store events to a relay server on a best-effort
// basis. Calls never return an error and never block the caller beyond a
// short fixed timeout: a checkout or contact-form submission must not fail
// or slow down because the notification side channel is unhealthy.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout = 2 * time.Second
	totalTimeout   = 3 * time.Second
)

type Config struct {
	// BaseURL of the relay server, e.g. "https://relay.example.com".
	BaseURL string
	// Slug identifies the store on the relay server.
	Slug string
	// Secret is the shared bearer secret issued at client registration.
	Secret string
	// InsecureSkipVerify disables certificate validation. Development only.
	InsecureSkipVerify bool
}

// Order describes a placed order for the "order placed" event.
type Order struct {
	OrderNumber  string  `json:"order_number"`
	CustomerName string  `json:"customer_name"`
	Total        float64 `json:"total"`
	ItemCount    int     `json:"item_count"`
	// ReceivedAt is epoch seconds; zero means "now".
	ReceivedAt int64 `json:"received_at"`
}

type Notifier struct {
	cfg    Config
	client *http.Client
	// now is swappable in tests
	now func() time.Time
}

func New(cfg Config) *Notifier {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Notifier{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
		now: time.Now,
	}
}

// OrderPlaced submits an "order placed" event. It has no return value on
// purpose: delivery is fire-and-forget and the outcome must never influence
// the calling business operation.
func (n *Notifier) OrderPlaced(ctx context.Context, order Order) {
	if order.ReceivedAt <= 0 {
		order.ReceivedAt = n.now().Unix()
	}
	n.post(ctx, "order", order)
}

// Event submits a generic named event with arbitrary attributes.
func (n *Notifier) Event(ctx context.Context, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	body := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	n.post(ctx, "generic", body)
}

func (n *Notifier) post(ctx context.Context, kind string, body interface{}) {
	if n.cfg.BaseURL == "" || n.cfg.Slug == "" {
		log.Debug("Notifier not configured, dropping event")
		return
	}

	raw, err := json.Marshal(body)
	if err != nil {
		log.WithError(err).Debug("Failed to marshal event, dropping")
		return
	}

	url := fmt.Sprintf("%s/event/%s/%s", n.cfg.BaseURL, n.cfg.Slug, kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		log.WithError(err).Debug("Failed to build event request, dropping")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.Secret)

	resp, err := n.client.Do(req)
	if err != nil {
		log.WithError(err).WithField("kind", kind).Debug("Event delivery failed, dropping")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A 401 from a misconfigured secret lands here like any other
		// delivery failure.
		log.WithFields(log.Fields{
			"kind":   kind,
			"status": resp.StatusCode,
		}).Debug("Relay rejected event, dropping")
	}
}
