package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, email string, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, email string) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, email string, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, email, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, email string) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, email)
	}
	return 0, nil
}

func TestListNotificationsPassesFilters(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{}, nil
		},
	}
	req := newRequest(http.MethodGet, "/api/v1/notifications?limit=5&cursor=abc&unread_only=true", "", uuid.Nil, nil)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.RecipientEmail != "sales@kapoorcars.in" || got.Limit != 5 || got.Cursor != "abc" || !got.UnreadOnly {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestListNotificationsRejectsBadUnreadFlag(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/notifications?unread_only=maybe", "", uuid.Nil, nil)
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, email string, nid uuid.UUID) error {
			called = true
			if email != "sales@kapoorcars.in" {
				t.Fatalf("unexpected email %s", email)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := newRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "", uuid.Nil,
		map[string]string{"notificationId": notificationID.String()})
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data["read"] {
		t.Fatalf("expected read=true")
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/notifications/nope/read", "", uuid.Nil, map[string]string{"notificationId": "nope"})
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	id := uuid.New()
	svc := &testNotificationsService{
		markReadFn: func(context.Context, string, uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}
	req := newRequest(http.MethodPost, "/", "", uuid.Nil, map[string]string{"notificationId": id.String()})
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, email string) (int64, error) { return 4, nil },
	}
	req := newRequest(http.MethodPost, "/api/v1/notifications/read-all", "", uuid.Nil, nil)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)

	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["updated"] != 4 {
		t.Fatalf("expected 4 updated, got %v", envelope.Data)
	}
}
