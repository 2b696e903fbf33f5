package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"relay/internal/domain"

	"github.com/stretchr/testify/require"
)

// ---- mocks ----

type mockClientRepo struct {
	clients map[string]*domain.Client
	linked  []int64
}

func (m *mockClientRepo) GetBySlug(ctx context.Context, slug string) (*domain.Client, error) {
	if c, ok := m.clients[slug]; ok {
		return c, nil
	}
	return nil, domain.ErrClientNotFound
}

func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (m *mockClientRepo) Create(ctx context.Context, req domain.CreateClientRequest) (int64, error) {
	return 1, nil
}

func (m *mockClientRepo) SetChat(ctx context.Context, clientID, chatID int64, chatType, label string) error {
	for _, c := range m.clients {
		if c.ID == clientID {
			id := chatID
			c.TelegramChatID = &id
			m.linked = append(m.linked, chatID)
			return nil
		}
	}
	return domain.ErrClientNotFound
}

func (m *mockClientRepo) ListActive(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range m.clients {
		if c.Active && c.TelegramChatID != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	recorded  []*domain.Order
	lastSince int64
	stats     domain.Stats
	recordErr error
}

func (m *mockOrderRepo) Record(ctx context.Context, order *domain.Order) (int64, error) {
	if m.recordErr != nil {
		return 0, m.recordErr
	}
	m.recorded = append(m.recorded, order)
	return int64(len(m.recorded)), nil
}

func (m *mockOrderRepo) Recent(ctx context.Context, clientID int64, limit int) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) StatsSince(ctx context.Context, clientID int64, since int64) (*domain.Stats, error) {
	m.lastSince = since
	stats := m.stats
	return &stats, nil
}

type mockEventRepo struct {
	logged []domain.Event
}

func (m *mockEventRepo) Log(ctx context.Context, clientID int64, eventType string, payload map[string]interface{}) error {
	m.logged = append(m.logged, domain.Event{ClientID: clientID, EventType: eventType, Payload: payload})
	return nil
}

type mockSettingRepo struct {
	values map[string]string
}

func (m *mockSettingRepo) Get(ctx context.Context, clientID int64, key string) (string, error) {
	return m.values[key], nil
}

func (m *mockSettingRepo) Set(ctx context.Context, clientID int64, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

type mockChatRepo struct {
	sessions map[string]*domain.ChatSession
	messages map[string][]domain.ChatMessage
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		sessions: map[string]*domain.ChatSession{},
		messages: map[string][]domain.ChatMessage{},
	}
}

func (m *mockChatRepo) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockChatRepo) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockChatRepo) CloseSession(ctx context.Context, sessionID string) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = domain.ChatStatusClosed
	return nil
}

func (m *mockChatRepo) AddMessage(ctx context.Context, sessionID, sender, body string) error {
	m.messages[sessionID] = append(m.messages[sessionID], domain.ChatMessage{
		SessionID: sessionID,
		Sender:    sender,
		Body:      body,
		SentAt:    time.Now(),
	})
	return nil
}

func (m *mockChatRepo) MessagesSince(ctx context.Context, sessionID string, since int64) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	for _, msg := range m.messages[sessionID] {
		if msg.SentAt.Unix() > since {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockChatRepo) OpenSessions(ctx context.Context, clientID int64) ([]domain.ChatSession, error) {
	return nil, nil
}

// mockNotifier records deliveries on a channel so tests can wait for the
// async fan-out, and can be made to fail every call.
type mockNotifier struct {
	delivered chan string
	err       error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{delivered: make(chan string, 16)}
}

func (m *mockNotifier) NotifyOrder(ctx context.Context, client *domain.Client, order *domain.Order) error {
	m.delivered <- "order:" + order.OrderNumber
	return m.err
}

func (m *mockNotifier) NotifyEvent(ctx context.Context, client *domain.Client, eventType string, payload map[string]interface{}) error {
	m.delivered <- "event:" + eventType
	return m.err
}

func (m *mockNotifier) NotifyChatStarted(ctx context.Context, client *domain.Client, session *domain.ChatSession, firstMessage string) error {
	m.delivered <- "chat_started:" + session.SessionID
	return m.err
}

func (m *mockNotifier) NotifyChatMessage(ctx context.Context, client *domain.Client, session *domain.ChatSession, message string) error {
	m.delivered <- "chat_message:" + session.SessionID
	return m.err
}

func waitDelivered(t *testing.T, n *mockNotifier) string {
	t.Helper()
	select {
	case d := <-n.delivered:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never delivered")
		return ""
	}
}

// ---- fixtures ----

func testClient() *domain.Client {
	return &domain.Client{
		ID:             7,
		Slug:           "turtle-island",
		Name:           "Turtle Island Jewelry",
		APISecret:      "s3cret",
		CurrencySymbol: "$",
		Timezone:       "America/Toronto",
		Active:         true,
	}
}

type fixture struct {
	svc      *RelayService
	clients  *mockClientRepo
	orders   *mockOrderRepo
	events   *mockEventRepo
	settings *mockSettingRepo
	chats    *mockChatRepo
	notifier *mockNotifier
}

func newFixture() *fixture {
	f := &fixture{
		clients:  &mockClientRepo{clients: map[string]*domain.Client{"turtle-island": testClient()}},
		orders:   &mockOrderRepo{},
		events:   &mockEventRepo{},
		settings: &mockSettingRepo{values: map[string]string{}},
		chats:    newMockChatRepo(),
		notifier: newMockNotifier(),
	}
	f.svc = NewRelayService(f.clients, f.orders, f.events, f.settings, f.chats, f.notifier, nil)
	return f
}

// ---- tests ----

func TestClientBySlug(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	client, err := f.svc.ClientBySlug(ctx, "turtle-island")
	require.NoError(t, err)
	require.Equal(t, int64(7), client.ID)

	_, err = f.svc.ClientBySlug(ctx, "no-such-store")
	require.ErrorIs(t, err, domain.ErrClientNotFound)

	// Garbage slugs never reach the repository.
	_, err = f.svc.ClientBySlug(ctx, "UPPER CASE!!")
	require.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestReceiveOrderRecordsAndNotifies(t *testing.T) {
	f := newFixture()

	order, err := f.svc.ReceiveOrder(context.Background(), testClient(), domain.OrderEventRequest{
		OrderNumber:  "TI-ABC12345",
		CustomerName: "Jane Smith",
		Total:        79.99,
		ItemCount:    3,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), order.ID)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.NotZero(t, order.ReceivedAt, "received_at defaults to now")

	require.Len(t, f.orders.recorded, 1)
	require.Equal(t, "order:TI-ABC12345", waitDelivered(t, f.notifier))
}

func TestReceiveOrderDefaults(t *testing.T) {
	f := newFixture()

	order, err := f.svc.ReceiveOrder(context.Background(), testClient(), domain.OrderEventRequest{
		OrderNumber: "A-1",
		Total:       10,
	})
	require.NoError(t, err)
	require.Equal(t, "Unknown", order.CustomerName)
	require.Equal(t, 1, order.ItemCount)
}

func TestReceiveOrderValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ReceiveOrder(ctx, testClient(), domain.OrderEventRequest{Total: 10})
	require.ErrorIs(t, err, domain.ErrInvalidOrderNumber)

	_, err = f.svc.ReceiveOrder(ctx, testClient(), domain.OrderEventRequest{OrderNumber: "A-1", Total: -5})
	require.ErrorIs(t, err, domain.ErrInvalidOrderTotal)

	require.Empty(t, f.orders.recorded)
}

func TestReceiveOrderSucceedsWhenNotifierFails(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("telegram is down")

	_, err := f.svc.ReceiveOrder(context.Background(), testClient(), domain.OrderEventRequest{
		OrderNumber: "A-1",
		Total:       10,
	})
	require.NoError(t, err, "notification failures must never fail the business operation")
	waitDelivered(t, f.notifier)
}

func TestReceiveEvent(t *testing.T) {
	f := newFixture()

	err := f.svc.ReceiveEvent(context.Background(), testClient(), domain.GenericEventRequest{
		EventType: "low_stock",
		Payload:   map[string]interface{}{"product_name": "Pendant", "quantity": 2},
	})
	require.NoError(t, err)
	require.Len(t, f.events.logged, 1)
	require.Equal(t, "low_stock", f.events.logged[0].EventType)
	require.Equal(t, "event:low_stock", waitDelivered(t, f.notifier))

	require.ErrorIs(t,
		f.svc.ReceiveEvent(context.Background(), testClient(), domain.GenericEventRequest{}),
		domain.ErrInvalidEventType)
}

func TestLinkTelegramChat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client, err := f.svc.ClientBySlug(ctx, "turtle-island")
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.LinkTelegramChat(ctx, client, 0, "", ""), domain.ErrInvalidChatID)
	require.Empty(t, f.clients.linked)

	require.NoError(t, f.svc.LinkTelegramChat(ctx, client, 5551234, "private", "Jane"))
	require.Equal(t, []int64{5551234}, f.clients.linked)

	// The confirmation goes out with the reloaded, linked client.
	require.Equal(t, "event:"+domain.EventTelegramLinked, waitDelivered(t, f.notifier))

	linked, err := f.clients.GetByID(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.TelegramChatID)
	require.Equal(t, int64(5551234), *linked.TelegramChatID)
}

func TestMaintenanceStatusDefaultsOff(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	status, err := f.svc.MaintenanceStatus(ctx, testClient())
	require.NoError(t, err)
	require.Equal(t, "off", status)

	// Anything that is not exactly "on" reads as off.
	f.settings.values[domain.SettingMaintenance] = "banana"
	status, err = f.svc.MaintenanceStatus(ctx, testClient())
	require.NoError(t, err)
	require.Equal(t, "off", status)

	f.settings.values[domain.SettingMaintenance] = "on"
	status, err = f.svc.MaintenanceStatus(ctx, testClient())
	require.NoError(t, err)
	require.Equal(t, "on", status)
}

func TestSetMaintenance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.Error(t, f.svc.SetMaintenance(ctx, testClient(), "maybe"))

	require.NoError(t, f.svc.SetMaintenance(ctx, testClient(), "on"))
	require.Equal(t, "on", f.settings.values[domain.SettingMaintenance])
	require.Equal(t, "event:maintenance_on", waitDelivered(t, f.notifier))

	require.NoError(t, f.svc.SetMaintenance(ctx, testClient(), "off"))
	require.Equal(t, "off", f.settings.values[domain.SettingMaintenance])
	require.Equal(t, "event:maintenance_off", waitDelivered(t, f.notifier))
}

func TestStatsWindows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.TodayStats(ctx, testClient())
	require.NoError(t, err)
	require.Zero(t, f.orders.lastSince%86400, "today window starts at a midnight boundary")
	require.LessOrEqual(t, f.orders.lastSince, time.Now().Unix())

	now := time.Now().Unix()

	_, err = f.svc.WeekStats(ctx, testClient())
	require.NoError(t, err)
	require.InDelta(t, now-7*86400, f.orders.lastSince, 5)

	_, err = f.svc.MonthStats(ctx, testClient())
	require.NoError(t, err)
	require.InDelta(t, now-30*86400, f.orders.lastSince, 5)
}

var sessionIDPattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestStartChat(t *testing.T) {
	f := newFixture()

	session, err := f.svc.StartChat(context.Background(), testClient(), domain.ChatStartRequest{
		FirstMessage: "Is this in stock?",
	})
	require.NoError(t, err)
	require.Regexp(t, sessionIDPattern, session.SessionID)
	require.Equal(t, "Visitor", session.VisitorName)
	require.Equal(t, "/", session.Page)
	require.Equal(t, domain.ChatStatusOpen, session.Status)

	require.Len(t, f.chats.messages[session.SessionID], 1)
	require.Equal(t, "chat_started:"+session.SessionID, waitDelivered(t, f.notifier))

	_, err = f.svc.StartChat(context.Background(), testClient(), domain.ChatStartRequest{})
	require.Error(t, err, "first message is mandatory")
}

func TestPostVisitorMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.svc.StartChat(ctx, testClient(), domain.ChatStartRequest{FirstMessage: "hi"})
	require.NoError(t, err)
	waitDelivered(t, f.notifier)

	require.NoError(t, f.svc.PostVisitorMessage(ctx, testClient(), domain.ChatMessageRequest{
		SessionID: session.SessionID,
		Message:   "anyone there?",
	}))
	require.Len(t, f.chats.messages[session.SessionID], 2)
	waitDelivered(t, f.notifier)

	// Unknown session
	err = f.svc.PostVisitorMessage(ctx, testClient(), domain.ChatMessageRequest{SessionID: "NOPE1234", Message: "x"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Session of another store looks like a missing session.
	other := testClient()
	other.ID = 99
	err = f.svc.PostVisitorMessage(ctx, other, domain.ChatMessageRequest{SessionID: session.SessionID, Message: "x"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Closed session rejects messages.
	require.NoError(t, f.svc.CloseChat(ctx, session.SessionID))
	err = f.svc.PostVisitorMessage(ctx, testClient(), domain.ChatMessageRequest{SessionID: session.SessionID, Message: "x"})
	require.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestPollChat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.svc.StartChat(ctx, testClient(), domain.ChatStartRequest{FirstMessage: "hi"})
	require.NoError(t, err)
	waitDelivered(t, f.notifier)

	got, messages, err := f.svc.PollChat(ctx, session.SessionID, 0)
	require.NoError(t, err)
	require.Equal(t, domain.ChatStatusOpen, got.Status)
	require.Len(t, messages, 1)

	// since in the future filters everything out.
	_, messages, err = f.svc.PollChat(ctx, session.SessionID, time.Now().Unix()+3600)
	require.NoError(t, err)
	require.Empty(t, messages)

	_, _, err = f.svc.PollChat(ctx, "NOPE1234", 0)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
