// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package notification delivers scan alerts to chat, push and mail channels.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/clock"
	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/logging"
)

// Level constants
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// RateLimitWindow suppresses repeats of the same title on the same channel.
const RateLimitWindow = 60 * time.Second

// Notification represents a notification event
type Notification struct {
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Level     string         `json:"level"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Dispatcher manages notification channels and dispatching
type Dispatcher struct {
	config *config.NotificationsConfig
	logger *logging.Logger
	mu     sync.RWMutex

	// channel:title -> last delivery
	lastSent map[string]time.Time

	httpClient *http.Client
	clock      clock.Clock

	// injectable for tests
	emailSender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(cfg *config.NotificationsConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.WithComponent("notification")
	}
	return &Dispatcher{
		config:   cfg,
		logger:   logger,
		lastSent: make(map[string]time.Time),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		clock:       clock.Default(),
		emailSender: smtp.SendMail,
	}
}

// Enabled reports whether any delivery can happen.
func (d *Dispatcher) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config != nil && d.config.Enabled && len(d.config.Channels) > 0
}

// UpdateConfig swaps the channel configuration.
func (d *Dispatcher) UpdateConfig(cfg *config.NotificationsConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = cfg
}

// Send delivers n to every enabled channel whose level accepts it, in
// parallel, and waits for all deliveries. Failures are logged and returned
// combined.
func (d *Dispatcher) Send(n Notification) error {
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = d.clock.Now()
	}

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  error
	)
	for _, ch := range cfg.Channels {
		if !ch.Enabled || !shouldSend(n.Level, ch.Level) {
			continue
		}
		if d.isRateLimited(ch.Name, n.Title) {
			d.logger.Debug("notification rate limited", "channel", ch.Name, "title", n.Title)
			continue
		}

		wg.Add(1)
		go func(channel config.NotificationChannel) {
			defer wg.Done()
			if err := d.sendToChannel(channel, n); err != nil {
				err = errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "channel %s", channel.Name), "channel", channel.Name)
				d.logger.Error("failed to send notification",
					"channel", channel.Name,
					"type", channel.Type,
					"error", err)
				errMu.Lock()
				errs = errors.Append(errs, err)
				errMu.Unlock()
			}
		}(ch)
	}
	wg.Wait()
	return errs
}

// SendSimple is a helper for simple messages
func (d *Dispatcher) SendSimple(title, message, level string) error {
	return d.Send(Notification{Title: title, Message: message, Level: level})
}

func (d *Dispatcher) isRateLimited(channelName, title string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := channelName + ":" + title
	now := d.clock.Now()
	if last, ok := d.lastSent[key]; ok && now.Sub(last) < RateLimitWindow {
		return true
	}

	if len(d.lastSent) > 1000 {
		for k, t := range d.lastSent {
			if now.Sub(t) >= RateLimitWindow {
				delete(d.lastSent, k)
			}
		}
	}
	d.lastSent[key] = now
	return false
}

var levelRank = map[string]int{
	LevelInfo:     1,
	LevelWarning:  2,
	LevelCritical: 3,
}

// shouldSend checks if a message level meets the channel's minimum level
func shouldSend(msgLevel, chanLevel string) bool {
	if chanLevel == "" {
		return true
	}
	return levelRank[strings.ToLower(msgLevel)] >= levelRank[strings.ToLower(chanLevel)]
}

func (d *Dispatcher) sendToChannel(ch config.NotificationChannel, n Notification) error {
	switch strings.ToLower(ch.Type) {
	case "webhook":
		return d.postJSON(ch, n, map[string]any{
			"title":     n.Title,
			"text":      fmt.Sprintf("*%s*\n%s\n_Level: %s_", n.Title, n.Message, n.Level),
			"level":     n.Level,
			"timestamp": n.Timestamp.UTC().Format(time.RFC3339),
			"data":      n.Data,
		})
	case "slack":
		return d.postJSON(ch, n, map[string]any{
			"text": fmt.Sprintf("*%s*\n%s\n_Level: %s_", n.Title, n.Message, n.Level),
		})
	case "discord":
		return d.postJSON(ch, n, map[string]any{
			"content": fmt.Sprintf("**%s**\n%s", n.Title, n.Message),
		})
	case "ntfy":
		return d.sendNtfy(ch, n)
	case "email":
		return d.sendEmail(ch, n)
	default:
		return errors.Errorf(errors.KindValidation, "unknown channel type: %s", ch.Type)
	}
}

func (d *Dispatcher) postJSON(ch config.NotificationChannel, n Notification, payload map[string]any) error {
	if ch.WebhookURL == "" {
		return errors.New(errors.KindValidation, "missing webhook_url")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, ch.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ch.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s failed with status: %d", ch.Type, resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendNtfy(ch config.NotificationChannel, n Notification) error {
	url := ch.Server
	if url == "" {
		url = "https://ntfy.sh"
	}
	if ch.Topic == "" {
		return errors.New(errors.KindValidation, "missing topic for ntfy")
	}
	url = strings.TrimSuffix(url, "/") + "/" + ch.Topic

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(n.Message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", n.Title)

	switch n.Level {
	case LevelCritical:
		req.Header.Set("Priority", "high")
		req.Header.Set("Tags", "rotating_light")
	case LevelWarning:
		req.Header.Set("Priority", "default")
		req.Header.Set("Tags", "warning")
	case LevelInfo:
		req.Header.Set("Priority", "low")
		req.Header.Set("Tags", "information_source")
	}

	if ch.Token != "" {
		req.Header.Set("Authorization", "Bearer "+string(ch.Token))
	}
	for k, v := range ch.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ch config.NotificationChannel, n Notification) error {
	if ch.SMTPHost == "" || len(ch.To) == 0 {
		return errors.New(errors.KindValidation, "missing smtp_host or recipients")
	}

	port := ch.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", ch.SMTPHost, port)

	var auth smtp.Auth
	if ch.SMTPUser != "" {
		auth = smtp.PlainAuth("", ch.SMTPUser, string(ch.SMTPPassword), ch.SMTPHost)
	}

	from := ch.From
	if from == "" {
		from = brand.LowerName + "@localhost"
	}
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(ch.To, ","),
		"Subject":      fmt.Sprintf("[%s] %s", n.Level, n.Title),
		"Date":         n.Timestamp.Format(time.RFC1123Z),
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=\"utf-8\"",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}
	msg.WriteString("\r\n" + n.Message + "\r\n")

	return d.emailSender(addr, auth, from, ch.To, []byte(msg.String()))
}
