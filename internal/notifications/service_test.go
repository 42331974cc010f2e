package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"octpack/internal/config"
	"octpack/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newTopic(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), seen...)
	}
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPackFailed(context.Background(), "Core Set", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier for nil config, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	srv, seen := newTopic(t, http.StatusOK)
	svc := serviceFor(srv.URL)
	ctx := context.Background()

	if err := svc.NotifyPackCompleted(ctx, notifications.PackSummary{SetName: "Core Set", Archive: "/out/Core-Set.o8c", Cards: 226}); err != nil {
		t.Fatalf("NotifyPackCompleted: %v", err)
	}
	if err := svc.NotifyPackCompleted(ctx, notifications.PackSummary{SetName: "The Wilds of Rhovanion", Cards: 70, Substitutions: 2}); err != nil {
		t.Fatalf("NotifyPackCompleted: %v", err)
	}
	if err := svc.NotifyPackFailed(ctx, "Khazad-dûm", errors.New("hall of beorn unavailable")); err != nil {
		t.Fatalf("NotifyPackFailed: %v", err)
	}
	if err := svc.NotifyRunCompleted(ctx, 3, 1, 95*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}

	want := []captured{
		{title: "octpack - Pack Complete", body: "Packed Core Set: 226 cards\n/out/Core-Set.o8c", tags: "octpack,pack,completed"},
		{title: "octpack - Pack Complete", body: "Packed The Wilds of Rhovanion: 70 cards, 2 approximate matches to review", tags: "octpack,pack,completed,review"},
		{title: "octpack - Error", body: "Pack failed for Khazad-dûm: hall of beorn unavailable", tags: "octpack,error,alert", priority: "high"},
		{title: "octpack - Run Complete", body: "Packed 3 sets in 1m35s (1 failed)", tags: "octpack,run,completed"},
	}
	got := seen()
	if len(got) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("request %d: got %#v want %#v", i, got[i], want[i])
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newTopic(t, http.StatusForbidden)
	err := serviceFor(srv.URL).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
