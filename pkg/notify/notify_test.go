package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"relay/pkg/notify"

	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	auth   string
	ctype  string
	body   []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, *atomic.Int64, chan captured) {
	t.Helper()

	var calls atomic.Int64
	got := make(chan captured, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   body,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls, got
}

func TestOrderPlacedRequestShape(t *testing.T) {
	t.Parallel()

	srv, calls, got := captureServer(t, http.StatusOK)

	n := notify.New(notify.Config{
		BaseURL: srv.URL,
		Slug:    "turtle-island",
		Secret:  "s3cret",
	})

	n.OrderPlaced(context.Background(), notify.Order{
		OrderNumber:  "TI-ABC12345",
		CustomerName: "Jane Smith",
		Total:        79.99,
		ItemCount:    3,
		ReceivedAt:   1700000000,
	})

	require.Equal(t, int64(1), calls.Load(), "exactly one outbound request expected")

	req := <-got
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, "/event/turtle-island/order", req.path)
	require.Equal(t, "Bearer s3cret", req.auth)
	require.Equal(t, "application/json", req.ctype)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.Equal(t, "TI-ABC12345", payload["order_number"])
	require.Equal(t, "Jane Smith", payload["customer_name"])
	require.InDelta(t, 79.99, payload["total"], 0.001)
	require.EqualValues(t, 3, payload["item_count"])
	require.EqualValues(t, 1700000000, payload["received_at"])
}

func TestOrderPlacedDefaultsReceivedAt(t *testing.T) {
	t.Parallel()

	srv, _, got := captureServer(t, http.StatusOK)

	n := notify.New(notify.Config{BaseURL: srv.URL, Slug: "shop", Secret: "x"})

	before := time.Now().Unix()
	n.OrderPlaced(context.Background(), notify.Order{OrderNumber: "A-1", Total: 5})
	after := time.Now().Unix()

	req := <-got
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &payload))

	receivedAt := int64(payload["received_at"].(float64))
	require.GreaterOrEqual(t, receivedAt, before)
	require.LessOrEqual(t, receivedAt, after)
}

func TestEventRequestShape(t *testing.T) {
	t.Parallel()

	srv, calls, got := captureServer(t, http.StatusOK)

	n := notify.New(notify.Config{
		BaseURL: srv.URL + "/", // trailing slash must not produce a double slash
		Slug:    "turtle-island",
		Secret:  "s3cret",
	})

	n.Event(context.Background(), "contact_form", map[string]interface{}{
		"name":    "Bob",
		"subject": "Ring sizing",
	})

	require.Equal(t, int64(1), calls.Load())

	req := <-got
	require.Equal(t, "/event/turtle-island/generic", req.path)

	var payload struct {
		EventType string                 `json:"event_type"`
		Payload   map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.Equal(t, "contact_form", payload.EventType)
	require.Equal(t, "Bob", payload.Payload["name"])
}

func TestEventNilPayloadSendsEmptyObject(t *testing.T) {
	t.Parallel()

	srv, _, got := captureServer(t, http.StatusOK)

	n := notify.New(notify.Config{BaseURL: srv.URL, Slug: "shop", Secret: "x"})
	n.Event(context.Background(), "low_stock", nil)

	req := <-got
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.NotNil(t, payload["payload"])
}

// Delivery failures of every flavor must leave the caller untouched: no
// panic, no error, prompt return.
func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv, calls, _ := captureServer(t, http.StatusInternalServerError)
		n := notify.New(notify.Config{BaseURL: srv.URL, Slug: "shop", Secret: "x"})
		n.OrderPlaced(context.Background(), notify.Order{OrderNumber: "A-1", Total: 1})
		require.Equal(t, int64(1), calls.Load(), "no retries on failure")
	})

	t.Run("unauthorized", func(t *testing.T) {
		t.Parallel()
		srv, calls, _ := captureServer(t, http.StatusUnauthorized)
		n := notify.New(notify.Config{BaseURL: srv.URL, Slug: "shop", Secret: "wrong"})
		n.Event(context.Background(), "ping", nil)
		require.Equal(t, int64(1), calls.Load(), "auth failures are not retried either")
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		n := notify.New(notify.Config{BaseURL: url, Slug: "shop", Secret: "x"})
		n.OrderPlaced(context.Background(), notify.Order{OrderNumber: "A-1", Total: 1})
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		stall := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-stall
		}))
		t.Cleanup(func() {
			close(stall)
			srv.Close()
		})

		n := notify.New(notify.Config{BaseURL: srv.URL, Slug: "shop", Secret: "x"})

		start := time.Now()
		n.Event(context.Background(), "slow", nil)
		require.Less(t, time.Since(start), 5*time.Second, "call must not block past the total timeout")
	})

	t.Run("unconfigured", func(t *testing.T) {
		t.Parallel()
		n := notify.New(notify.Config{})
		n.OrderPlaced(context.Background(), notify.Order{OrderNumber: "A-1", Total: 1})
	})
}
