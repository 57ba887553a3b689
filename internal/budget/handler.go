// Package budget reacts to budget-threshold alerts with tiered shutdowns:
// warn at 50%, stop non-essential resources at 80%, stop everything at 100%.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"costguard/internal/driver"
	"costguard/internal/eventbus"
	"costguard/internal/notify"
	logx "costguard/pkg/logx"
)

// Threshold tiers, in percent of budget.
const (
	WarningThreshold   = 50.0
	CriticalThreshold  = 80.0
	EmergencyThreshold = 100.0
)

// Alert is one incoming budget notification.
type Alert struct {
	BudgetName   string  `json:"budget_name"`
	AlertType    string  `json:"alert_type"`
	ThresholdPct float64 `json:"threshold_pct"`
}

// Outcome records what one alert caused.
type Outcome struct {
	Level    string    `json:"level"` // none, warning, critical, emergency, disabled
	Actions  []string  `json:"actions"`
	Errors   []string  `json:"errors"`
	Time     time.Time `json:"time"`
	Disabled bool      `json:"disabled,omitempty"`
}

// Notifier is the slice of the notification pipeline the handler needs.
type Notifier interface {
	Enqueue(ctx context.Context, m notify.Message) error
}

// Config controls essential-resource exemption and the kill switch.
type Config struct {
	// EssentialTagKey/Value mark resources that survive the critical
	// tier. Defaults "Essential"/"true". Exact match, unlike the
	// case-insensitive protection tag.
	EssentialTagKey   string
	EssentialTagValue string

	// Disabled turns every tier into notification-only.
	Disabled bool
}

func (c Config) essentialKey() string {
	if c.EssentialTagKey == "" {
		return "Essential"
	}
	return c.EssentialTagKey
}

func (c Config) essentialValue() string {
	if c.EssentialTagValue == "" {
		return "true"
	}
	return c.EssentialTagValue
}

// Handler processes budget alerts against the sweepable drivers.
type Handler struct {
	cfg      Config
	drivers  []driver.Driver
	notifier Notifier
	bus      eventbus.Bus
	log      logx.Logger
}

func NewHandler(cfg Config, drivers []driver.Driver, notifier Notifier, bus eventbus.Bus, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{cfg: cfg, drivers: drivers, notifier: notifier, bus: bus, log: log}
}

// Process handles one alert. Per-resource failures are recorded in the
// outcome; nothing aborts processing.
func (h *Handler) Process(ctx context.Context, a Alert) Outcome {
	out := Outcome{Level: "none", Time: time.Now().UTC()}
	h.log.Info("budget alert received",
		logx.String("budget", a.BudgetName),
		logx.String("type", a.AlertType),
		logx.Float64("pct", a.ThresholdPct))

	if h.cfg.Disabled {
		out.Level = "disabled"
		out.Disabled = true
		out.Actions = append(out.Actions, "Notification sent - shutdown disabled")
		h.notify(ctx,
			"Budget Alert - Shutdown Disabled",
			fmt.Sprintf("Budget alert received but shutdown is disabled: %s reached %.1f%%", a.BudgetName, a.ThresholdPct))
		return out
	}

	switch {
	case a.ThresholdPct >= EmergencyThreshold:
		out.Level = "emergency"
		h.stopResources(ctx, &out, false)
		body := fmt.Sprintf("EMERGENCY SHUTDOWN: %s exceeded 100%%\n\nALL services have been stopped to prevent further costs:\n%s\n\nManual intervention required to restart services.",
			a.BudgetName, bulletList(out.Actions))
		h.notify(ctx, "EMERGENCY SHUTDOWN - "+a.BudgetName, body)

	case a.ThresholdPct >= CriticalThreshold:
		out.Level = "critical"
		h.stopResources(ctx, &out, true)
		body := fmt.Sprintf("BUDGET CRITICAL: %s reached %.1f%%\n\nNon-essential services have been stopped:\n%s\n\nEssential services remain running.",
			a.BudgetName, a.ThresholdPct, bulletList(out.Actions))
		h.notify(ctx, "Budget Critical - Services Stopped - "+a.BudgetName, body)

	case a.ThresholdPct >= WarningThreshold:
		out.Level = "warning"
		out.Actions = append(out.Actions, "Warning notification sent")
		body := fmt.Sprintf("BUDGET WARNING: %s reached %.1f%%\nConsider reviewing resource usage to avoid exceeding limits.",
			a.BudgetName, a.ThresholdPct)
		h.notify(ctx, "Budget Warning - "+a.BudgetName, body)
	}

	if h.bus != nil {
		h.bus.Publish(eventbus.Event{Type: eventbus.TypeBudgetAlert, Data: out})
	}
	return out
}

// stopResources stops running resources across all drivers. essentialOnly
// spares resources carrying the essential tag; the emergency tier ignores it.
func (h *Handler) stopResources(ctx context.Context, out *Outcome, essentialOnly bool) {
	verb := "EMERGENCY STOP"
	if essentialOnly {
		verb = "Stopped"
	}
	for _, d := range h.drivers {
		kind := d.Kind()
		resources, err := d.List(ctx)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s list error: %v", kind, err))
			h.log.Error("budget stop: listing failed", logx.String("kind", kind), logx.Err(err))
			continue
		}
		for _, r := range resources {
			if r.State != driver.StateRunning {
				continue
			}
			if essentialOnly && h.isEssential(r) {
				continue
			}
			if err := d.Stop(ctx, r.ID); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("Could not stop %s %s: %v", kind, r.ID, err))
				continue
			}
			out.Actions = append(out.Actions, fmt.Sprintf("%s - %s: %s", verb, strings.ToUpper(kind), r.ID))
		}
	}
}

func (h *Handler) isEssential(r driver.Resource) bool {
	v, ok := r.Tags.Lookup(h.cfg.essentialKey())
	return ok && v == h.cfg.essentialValue()
}

func (h *Handler) notify(ctx context.Context, subject, body string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Enqueue(ctx, notify.Message{Subject: subject, Body: body}); err != nil {
		h.log.Warn("budget notification not sent", logx.Err(err))
	}
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}
