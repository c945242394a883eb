package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NotificationEvent classifies a push notification.
type NotificationEvent string

const (
	EventSLAWarning        NotificationEvent = "sla_warning"
	EventTaskCompleted     NotificationEvent = "task_completed"
	EventApprovalRequested NotificationEvent = "approval_requested"
	EventEscalated         NotificationEvent = "escalated"
	EventDigest            NotificationEvent = "digest"
)

// Notification is a single push message to the operator.
type Notification struct {
	Event   NotificationEvent
	Title   string
	Message string
	TaskID  string
	Time    time.Time
}

// Notifier sends notifications to an external channel. Delivery is
// fire-and-forget from the loop's point of view: callers log failures and
// carry on.
type Notifier interface {
	Notify(n Notification) error
}

// NewNoopNotifier returns a Notifier that discards everything. Used when
// notifications are disabled.
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

type noopNotifier struct{}

func (noopNotifier) Notify(Notification) error { return nil }

// NewMultiNotifier fans a notification out to every channel, returning the
// first delivery error after attempting all of them.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	return multiNotifier{notifiers: notifiers}
}

type multiNotifier struct {
	notifiers []Notifier
}

func (m multiNotifier) Notify(n Notification) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// telegramNotifier sends notifications through the Telegram bot API.
type telegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Notifier posting to the given bot and chat.
func NewTelegramNotifier(botToken, chatID string) Notifier {
	return &telegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *telegramNotifier) Notify(n Notification) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", formatNotificationText(n))

	resp, err := t.client.PostForm(endpoint, form)
	if err != nil {
		return fmt.Errorf("posting to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// slackNotifier sends notifications to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given Slack webhook
// URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *slackNotifier) Notify(n Notification) error {
	msg := slackMessage{
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: n.Title},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: slackBody(n)},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func slackBody(n Notification) string {
	text := fmt.Sprintf("*[%s]* %s", strings.ToUpper(string(n.Event)), n.Message)
	if n.TaskID != "" {
		text += fmt.Sprintf("\nTask: `%s`", n.TaskID)
	}
	if !n.Time.IsZero() {
		text += fmt.Sprintf("\n_%s_", n.Time.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return text
}

func formatNotificationText(n Notification) string {
	var b strings.Builder
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	b.WriteString(n.Message)
	if n.TaskID != "" {
		fmt.Fprintf(&b, "\n\nTask: %s", n.TaskID)
	}
	return b.String()
}
