package portalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrportal/portal-client/internal/models"
)

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attendance/status/emp-7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":"IN","can_clock":true,"disabled_reason":null}`))
	}))
	defer server.Close()

	status, err := New(server.URL, time.Second).WithToken("tok").GetStatus(context.Background(), "emp-7")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Current() != models.StatusIn || !status.CanClock || status.DisabledReason != nil {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestClockSendsPayload(t *testing.T) {
	var got models.ClockRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/attendance/clock" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	req := models.ClockRequest{RequestID: "6f1c2f9e-2d7a-4c55-9c61-0e3f5b7a8d10", EmployeeID: "emp-7", Location: "Location Permission Denied", Type: models.StatusIn}
	if err := New(server.URL, time.Second).Clock(context.Background(), req); err != nil {
		t.Fatalf("clock: %v", err)
	}
	if got != req {
		t.Fatalf("server got %+v", got)
	}
}

func TestClockServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"attendance service down"}`))
	}))
	defer server.Close()

	err := New(server.URL, time.Second).Clock(context.Background(), models.ClockRequest{})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusServiceUnavailable || apiErr.Message != "attendance service down" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestGetHistoryAndUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"date":"2026-03-09","sessions":[{"in":"09:00 AM","out":null}],"isHoliday":false,"isWeekend":false,"checkIn":"09:00 AM","checkOut":"-"}]`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	if _, err := client.GetHistory(context.Background(), "emp-7"); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	logs, err := client.WithToken("tok").GetHistory(context.Background(), "emp-7")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(logs) != 1 || !logs[0].Open() || logs[0].HasCheckOut() {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestSetLike(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed/post-1/like" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(models.LikeResult{Liked: body["liked"], LikeCount: 4})
	}))
	defer server.Close()

	result, err := New(server.URL, time.Second).SetLike(context.Background(), "post-1", true)
	if err != nil || !result.Liked || result.LikeCount != 4 {
		t.Fatalf("unexpected like result %+v %v", result, err)
	}
}
