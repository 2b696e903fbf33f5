package domain

import (
	"errors"
	"time"
)

// Well-known generic event types. Anything else is stored and forwarded as-is.
const (
	EventLowStock       = "low_stock"
	EventContactForm    = "contact_form"
	EventMaintenanceOn  = "maintenance_on"
	EventMaintenanceOff = "maintenance_off"
	EventDailySummary   = "daily_summary"
	EventTelegramLinked = "telegram_linked"
)

var ErrInvalidEventType = errors.New("invalid event type")

type Event struct {
	ID        int64                  `json:"id"`
	ClientID  int64                  `json:"client_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// GenericEventRequest is the body of POST /event/:slug/generic.
type GenericEventRequest struct {
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
}

// Maintenance flag values stored under the "maintenance" settings key. The
// storefront gate treats anything that is not exactly "on" as off.
const (
	MaintenanceOn  = "on"
	MaintenanceOff = "off"
)

// SettingMaintenance is the settings key holding the maintenance flag.
const SettingMaintenance = "maintenance"
