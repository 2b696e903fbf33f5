package telegram

import (
	"fmt"
	"strings"
	"time"

	"relay/internal/domain"
)

// FormatCurrency renders an amount with a currency symbol and thousands
// separators, e.g. "$1,234.50".
func FormatCurrency(amount float64, symbol string) string {
	if symbol == "" {
		symbol = "$"
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := fmt.Sprintf("%.2f", amount)
	dot := strings.Index(whole, ".")
	intPart, fracPart := whole[:dot], whole[dot:]

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return sign + symbol + b.String() + fracPart
}

func formatClock(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("3:04 PM")
}

// OrderMessage is the "new order" notification.
func OrderMessage(client *domain.Client, order *domain.Order) string {
	name := order.CustomerName
	if name == "" {
		name = "Unknown customer"
	}

	itemLabel := fmt.Sprintf("%d items", order.ItemCount)
	if order.ItemCount == 1 {
		itemLabel = "1 item"
	}

	return fmt.Sprintf(
		"🛒 *New Order*\n\n#%s\n%s\n%s · *%s*\n\n_%s_",
		order.OrderNumber,
		name,
		itemLabel,
		FormatCurrency(order.Total, client.CurrencySymbol),
		formatClock(order.ReceivedAt),
	)
}

// EventMessage formats a generic event for the owner, or "" when the event
// type has no notification format (it is still stored server-side).
func EventMessage(eventType string, payload map[string]interface{}, symbol string) string {
	switch eventType {
	case domain.EventLowStock:
		product := stringAttr(payload, "product_name", "Unknown product")
		qty := stringAttr(payload, "quantity", "?")
		return fmt.Sprintf("⚠️ *Low Stock Alert*\n\n%s\nOnly *%s* left", product, qty)

	case domain.EventContactForm:
		from := stringAttr(payload, "name", "Someone")
		subject := stringAttr(payload, "subject", "no subject")
		return fmt.Sprintf(
			"📩 *Contact Form*\n\nFrom: %s\nRe: %s\n\n_Check your email for the full message_",
			from, subject,
		)

	case domain.EventMaintenanceOn:
		return "🔧 *Maintenance Mode ON*\nStore is now offline for visitors."

	case domain.EventMaintenanceOff:
		return "✅ *Maintenance Mode OFF*\nStore is back online."

	case domain.EventTelegramLinked:
		store := stringAttr(payload, "store_name", "your store")
		return fmt.Sprintf(
			"✅ *Linked!*\n\nThis chat now receives notifications for *%s*.",
			store,
		)

	case domain.EventDailySummary:
		date := stringAttr(payload, "date", "Today")
		return fmt.Sprintf(
			"📊 *Daily Summary — %s*\n\nOrders: *%s*\nRevenue: *%s*\nAvg order: *%s*",
			date,
			stringAttr(payload, "order_count", "0"),
			FormatCurrency(floatAttr(payload, "revenue"), symbol),
			FormatCurrency(floatAttr(payload, "avg_order"), symbol),
		)
	}

	return ""
}

// StatsMessage renders the /today-style summaries; title is e.g. "Today" or
// "Last 7 Days".
func StatsMessage(client *domain.Client, title string, stats *domain.Stats) string {
	return fmt.Sprintf(
		"📊 *%s*\n\nOrders: *%d*\nRevenue: *%s*\nAvg order: *%s*",
		title,
		stats.OrderCount,
		FormatCurrency(stats.Revenue, client.CurrencySymbol),
		FormatCurrency(stats.AvgOrder, client.CurrencySymbol),
	)
}

var statusIcons = map[string]string{
	domain.OrderStatusPending:   "⏳",
	domain.OrderStatusFulfilled: "✅",
	domain.OrderStatusCancelled: "❌",
}

func RecentOrdersMessage(client *domain.Client, orders []domain.Order) string {
	if len(orders) == 0 {
		return "No orders yet."
	}

	lines := []string{"🛒 *Recent Orders*\n"}
	for _, o := range orders {
		name := o.CustomerName
		if name == "" {
			name = "Unknown"
		}
		icon, ok := statusIcons[o.Status]
		if !ok {
			icon = "•"
		}
		lines = append(lines, fmt.Sprintf(
			"%s #%s · %s · *%s*",
			icon, o.OrderNumber, name, FormatCurrency(o.Total, client.CurrencySymbol),
		))
	}
	return strings.Join(lines, "\n")
}

func ChatStartedMessage(session *domain.ChatSession, firstMessage string) string {
	page := session.Page
	if page == "" {
		page = "/"
	}
	return fmt.Sprintf(
		"💬 *New Chat — %s*\n\n%s\n\n📄 Page: `%s`\n🔑 Session: `%s`",
		session.VisitorName, firstMessage, page, session.SessionID,
	)
}

func ChatFollowupMessage(session *domain.ChatSession, message string) string {
	return fmt.Sprintf("💬 *%s* (`%s`)\n\n%s", session.VisitorName, session.SessionID, message)
}

func stringAttr(payload map[string]interface{}, key, fallback string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func floatAttr(payload map[string]interface{}, key string) float64 {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
