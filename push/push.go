// Package push turns incoming push messages into displayed notifications
// and resolves notification clicks into navigation targets.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/neurospeech/offline-cache/metrics"
)

// Notification action identifiers. A plain click (no action) behaves like
// ActionOpen.
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// Payload is the optional JSON body of a push message.
// All fields are optional; defaults are applied when building the
// notification.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// ParsePayload decodes a push message body. An absent or malformed body
// yields the empty payload rather than an error.
func ParsePayload(data []byte) Payload {
	var p Payload
	if len(data) == 0 {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}
	}
	return p
}

// Action is one button on a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Data is the application data carried by a notification; the URL is the
// navigation target for the open action.
type Data struct {
	URL string `json:"url"`
}

type Notification struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Icon    string   `json:"icon"`
	Badge   string   `json:"badge"`
	Vibrate []int    `json:"vibrate"`
	Data    Data     `json:"data"`
	Actions []Action `json:"actions"`
}

// Notifier displays notifications. It is an external collaborator: the
// worker only decides what to show, not how.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. It is the default
// collaborator when no real delivery channel is wired.
type LogNotifier struct {
	Log zerolog.Logger
}

func (l LogNotifier) Show(ctx context.Context, n Notification) error {
	l.Log.Info().
		Str("id", n.ID).
		Str("title", n.Title).
		Str("url", n.Data.URL).
		Msg("Showing notification")
	return nil
}

// Defaults are the notification fields used when the payload omits them.
type Defaults struct {
	Title string
	Body  string
	Icon  string
	Badge string
}

var defaultVibration = []int{100, 50, 100}

// Manager builds, displays, and tracks notifications.
type Manager struct {
	mutex    sync.Mutex
	defaults Defaults
	notifier Notifier
	log      zerolog.Logger
	shown    map[string]Notification
}

func NewManager(defaults Defaults, notifier Notifier, logger zerolog.Logger) *Manager {
	if defaults.Title == "" {
		defaults.Title = "NeuroSpeech"
	}
	if defaults.Body == "" {
		defaults.Body = "New notification from NeuroSpeech"
	}
	if defaults.Icon == "" {
		defaults.Icon = "/static/icons/icon-192x192.png"
	}
	if defaults.Badge == "" {
		defaults.Badge = "/static/icons/icon-72x72.png"
	}
	return &Manager{
		defaults: defaults,
		notifier: notifier,
		log:      logger,
		shown:    map[string]Notification{},
	}
}

// Receive handles one push message: parses the payload, builds the
// notification, displays it, and retains it until it is clicked.
func (m *Manager) Receive(ctx context.Context, data []byte) (Notification, error) {
	n := m.build(ParsePayload(data))
	if err := m.notifier.Show(ctx, n); err != nil {
		return n, err
	}
	metrics.RecordNotificationShown()
	m.mutex.Lock()
	m.shown[n.ID] = n
	m.mutex.Unlock()
	return n, nil
}

// Click resolves a click on a displayed notification. The notification is
// always closed. For the close action the returned URL is empty; for the
// open action (and a plain click) it is the notification's target URL.
func (m *Manager) Click(id, action string) (string, error) {
	m.mutex.Lock()
	n, ok := m.shown[id]
	if ok {
		delete(m.shown, id)
	}
	m.mutex.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown notification %q", id)
	}
	m.log.Debug().Str("id", id).Str("action", action).Msg("Notification clicked")
	if action == ActionClose {
		return "", nil
	}
	return n.Data.URL, nil
}

func (m *Manager) build(p Payload) Notification {
	if p.Title == "" {
		p.Title = m.defaults.Title
	}
	if p.Body == "" {
		p.Body = m.defaults.Body
	}
	if p.URL == "" {
		p.URL = "/"
	}
	return Notification{
		ID:      uuid.NewString(),
		Title:   p.Title,
		Body:    p.Body,
		Icon:    m.defaults.Icon,
		Badge:   m.defaults.Badge,
		Vibrate: defaultVibration,
		Data:    Data{URL: p.URL},
		Actions: []Action{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionClose, Title: "Close"},
		},
	}
}
