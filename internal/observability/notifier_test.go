package observability

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifier_SendsBlocks(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		var err error
		receivedBody, err = io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("reading request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Notify(Notification{
		Event:   EventSLAWarning,
		Title:   "SLA Warning",
		Message: "Task 20250602-100000-manual has been pending for 25 hours. Please review.",
		TaskID:  "20250602-100000-manual",
		Time:    time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	var msg slackMessage
	if err := json.Unmarshal(receivedBody, &msg); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if len(msg.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Type != "header" || msg.Blocks[0].Text == nil || msg.Blocks[0].Text.Text != "SLA Warning" {
		t.Errorf("unexpected header block: %+v", msg.Blocks[0])
	}
	if msg.Blocks[1].Type != "section" {
		t.Errorf("expected section block, got %s", msg.Blocks[1].Type)
	}

	body := string(receivedBody)
	if !strings.Contains(body, "SLA_WARNING") {
		t.Error("expected body to contain the event tag")
	}
	if !strings.Contains(body, "20250602-100000-manual") {
		t.Error("expected body to contain the task ID")
	}
	if !strings.Contains(body, "2025-06-03 11:00 UTC") {
		t.Error("expected body to contain the timestamp")
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Notify(Notification{Event: EventDigest, Title: "Daily Digest", Message: "x"})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain status code 500, got: %s", err.Error())
	}
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoopNotifier()
	if err := n.Notify(Notification{Event: EventEscalated, Title: "x", Message: "y"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestMultiNotifier_FansOut(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	n := NewMultiNotifier(a, b)

	if err := n.Notify(Notification{Event: EventTaskCompleted, Title: "Done", Message: "m"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("expected both channels to receive the notification, got %d and %d", len(a.sent), len(b.sent))
	}
}

func TestMultiNotifier_DeliversDespiteFailure(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingNotifier{err: boom}
	b := &recordingNotifier{}
	n := NewMultiNotifier(a, b)

	err := n.Notify(Notification{Event: EventDigest, Title: "Digest", Message: "m"})
	if !errors.Is(err, boom) {
		t.Errorf("expected first error to be returned, got %v", err)
	}
	if len(b.sent) != 1 {
		t.Error("expected second channel to still receive the notification")
	}
}

func TestFormatNotificationText(t *testing.T) {
	text := formatNotificationText(Notification{
		Title:   "Approval Requested",
		Message: "Task Pay vendor needs your approval.",
		TaskID:  "task-1",
	})

	if !strings.HasPrefix(text, "Approval Requested\n\n") {
		t.Errorf("expected title first, got %q", text)
	}
	if !strings.Contains(text, "Task: task-1") {
		t.Errorf("expected task reference, got %q", text)
	}
}
