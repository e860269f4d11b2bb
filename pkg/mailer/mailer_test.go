package mailer

import (
	"net/smtp"
	"strings"
	"testing"
)

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p"}); err == nil {
		t.Error("New() without From error = nil, want error")
	}
	if _, err := New(Config{Host: "smtp.example.com", Port: "587", From: "a@b.co"}); err == nil {
		t.Error("New() without credentials error = nil, want error")
	}
}

func TestSendBuildsMessage(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	if err := m.Send("user@example.com", "Receipt", "<p>Thanks</p>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Content-Type: text/html") {
		t.Errorf("message missing html content type:\n%s", gotMsg)
	}
	if err := m.Send("", "Receipt", "x"); err == nil {
		t.Error("Send() without recipient error = nil, want error")
	}
}
