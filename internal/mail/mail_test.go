package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMailtrapSend(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMailtrapMailer(srv.URL, "secret-key", "noreply@chattings.com", "Chattings")
	err := m.Send(context.Background(), Message{
		To:      "temp2@mail.com",
		Subject: "Chattings: Confirm your email",
		Text:    "hello",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if auth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.From.Email != "noreply@chattings.com" || got.From.Name != "Chattings" {
		t.Errorf("from = %+v", got.From)
	}
	if len(got.To) != 1 || got.To[0].Email != "temp2@mail.com" {
		t.Errorf("to = %+v", got.To)
	}
	if got.Subject != "Chattings: Confirm your email" {
		t.Errorf("subject = %q", got.Subject)
	}
}

func TestMailtrapSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["bad token"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailtrapMailer(srv.URL, "wrong", "noreply@chattings.com", "Chattings")
	err := m.Send(context.Background(), Message{To: "temp2@mail.com", Subject: "x"})
	if err == nil {
		t.Fatal("Send() error = nil, want API error")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage("temp2@mail.com", "http://localhost:8000", "abc123")
	if msg.To != "temp2@mail.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "Chattings: Confirm your email" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	wantLink := "http://localhost:8000/auth/emailverification/abc123"
	if !strings.Contains(msg.Text, wantLink) || !strings.Contains(msg.HTML, wantLink) {
		t.Errorf("message body does not carry the link %q", wantLink)
	}
}

func TestRecoveryMessage(t *testing.T) {
	msg := RecoveryMessage("temp2@mail.com", "http://localhost:8000", "abc123")
	if msg.Subject != "Chattings: Recover your password" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	wantLink := "http://localhost:8000/auth/password-recovery/abc123"
	if !strings.Contains(msg.Text, wantLink) || !strings.Contains(msg.HTML, wantLink) {
		t.Errorf("message body does not carry the link %q", wantLink)
	}
}
