package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"bevops-backend/internal/models"
)

// Notification is a push message independent of the delivery channel
type Notification struct {
	Title string
	Body  string
	Data  map[string]string

	Urgent      bool
	CollapseKey string
}

// Kind is the notification type carried in Data
func (n Notification) Kind() string {
	return n.Data["type"]
}

// Sender delivers one notification to many device tokens. FCMService implements it.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, n Notification) error
}

// TokenSource resolves device tokens for users holding any of roles
type TokenSource func(ctx context.Context, roles ...string) ([]string, error)

// Notifier pushes urgent cleaning work and critical alerts to the crews that act on them
type Notifier struct {
	sender Sender
	tokens TokenSource

	mu       sync.Mutex
	notified map[string]struct{} // critical alert ids already pushed
}

// NewNotifier returns a Notifier. A nil sender disables push.
func NewNotifier(sender Sender, tokens TokenSource) *Notifier {
	return &Notifier{sender: sender, tokens: tokens, notified: make(map[string]struct{})}
}

// UrgentCleaning notifies cleaners about urgent queue items
func (n *Notifier) UrgentCleaning(ctx context.Context, items []models.CleaningQueueItem) {
	for _, it := range items {
		if it.Priority != models.PriorityUrgent {
			continue
		}
		n.push(ctx, CleaningNotification(it), models.RoleCleaner, models.RoleAdmin)
	}
}

// CriticalAlerts notifies operators about critical alerts. Alerts is the full
// current set; an alert is pushed once until it clears.
func (n *Notifier) CriticalAlerts(ctx context.Context, alerts []models.Alert) {
	for _, a := range n.fresh(alerts) {
		n.push(ctx, AlertNotification(a), models.RoleOperator, models.RoleAdmin)
	}
}

func (n *Notifier) fresh(alerts []models.Alert) []models.Alert {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	current := make(map[string]struct{})
	var out []models.Alert
	for _, a := range alerts {
		if a.Severity != models.AlertCritical {
			continue
		}
		current[a.ID] = struct{}{}
		if _, ok := n.notified[a.ID]; !ok {
			out = append(out, a)
		}
	}
	n.notified = current
	return out
}

func (n *Notifier) push(ctx context.Context, msg Notification, roles ...string) {
	if n == nil || n.sender == nil {
		return
	}
	tokens, err := n.tokens(ctx, roles...)
	if err != nil {
		log.Printf("⚠️  [PUSH] Failed to load tokens for %v: %v", roles, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := n.sender.SendMulticast(ctx, tokens, msg); err != nil {
		log.Printf("⚠️  [PUSH] Failed to send %s: %v", msg.Kind(), err)
	}
}

// CleaningNotification builds the push message for a queue item
func CleaningNotification(it models.CleaningQueueItem) Notification {
	return Notification{
		Title: "Urgent Cleaning",
		Body:  fmt.Sprintf("%s (%s) returned from %s needs cleaning now", it.ContainerID, it.ProductName, it.ReturnedFrom),
		Data: map[string]string{
			"type":         "cleaning_urgent",
			"item_id":      it.ID,
			"container_id": it.ContainerID,
			"condition":    string(it.Condition),
		},
		Urgent:      true,
		CollapseKey: "cleaning-" + it.ContainerID,
	}
}

// AlertNotification builds the push message for an alert
func AlertNotification(a models.Alert) Notification {
	return Notification{
		Title: a.Title,
		Body:  a.Message,
		Data: map[string]string{
			"type":       "alert_critical",
			"alert_id":   a.ID,
			"alert_type": string(a.Type),
		},
		Urgent:      a.Severity == models.AlertCritical,
		CollapseKey: "alert-" + a.ID,
	}
}
