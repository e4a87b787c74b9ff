package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStoreDown   AlertType = "store_down"
	AlertStoreSlow   AlertType = "store_slow"
	AlertBreakerOpen AlertType = "breaker_open"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	failures := a.cfg.FailuresBeforeAlert
	if failures <= 0 {
		failures = 1
	}
	if !snap.StoreUp && snap.ConsecutiveFailures >= failures {
		alerts = append(alerts, Alert{
			Type:     AlertStoreDown,
			Severity: "high",
			Message:  fmt.Sprintf("Evidence store unreachable for %d consecutive probes", snap.ConsecutiveFailures),
			Details: map[string]any{
				"error":    snap.PingError,
				"failures": snap.ConsecutiveFailures,
			},
			Timestamp: now,
		})
	}

	threshold := time.Duration(a.cfg.LatencyThresholdMs) * time.Millisecond
	if snap.StoreUp && threshold > 0 && snap.PingLatency > threshold {
		alerts = append(alerts, Alert{
			Type:     AlertStoreSlow,
			Severity: "medium",
			Message:  fmt.Sprintf("Evidence store ping took %s, threshold %s", snap.PingLatency, threshold),
			Details: map[string]any{
				"latency_ms":   snap.PingLatency.Milliseconds(),
				"threshold_ms": a.cfg.LatencyThresholdMs,
			},
			Timestamp: now,
		})
	}

	if snap.BreakerState == "open" {
		alerts = append(alerts, Alert{
			Type:     AlertBreakerOpen,
			Severity: "high",
			Message:  "Store circuit breaker is open; provenance sections report unavailable",
			Details: map[string]any{
				"breaker_failures": snap.BreakerFailures,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			alertsSent.WithLabelValues(string(alert.Type), "failed").Inc()
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		alertsSent.WithLabelValues(string(alert.Type), "sent").Inc()
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
