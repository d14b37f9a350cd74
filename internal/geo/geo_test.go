package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReportedLocate(t *testing.T) {
	pos, err := Reported{Position: &Position{Latitude: 17.385, Longitude: 78.4867}}.Locate(context.Background())
	if err != nil || pos.Latitude != 17.385 {
		t.Fatalf("unexpected result %+v %v", pos, err)
	}

	_, err = Reported{ErrorCode: CodePermissionDenied}.Locate(context.Background())
	if got := Placeholder(err); got != "Location Permission Denied" {
		t.Fatalf("placeholder=%q", got)
	}

	_, err = Reported{}.Locate(context.Background())
	if got := Placeholder(err); got != "Geolocation Not Supported" {
		t.Fatalf("placeholder=%q", got)
	}

	_, err = Reported{ErrorCode: CodeTimeout}.Locate(context.Background())
	if got := Placeholder(err); got != "Location Request Timed Out" {
		t.Fatalf("placeholder=%q", got)
	}
}

func TestFormatCoordinates(t *testing.T) {
	if got := FormatCoordinates(Position{Latitude: 17.385, Longitude: -78.4867}); got != "17.385000, -78.486700" {
		t.Fatalf("unexpected coordinates %q", got)
	}
}

func TestNominatimReverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" || r.URL.Query().Get("lat") != "17.385" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("User-Agent") != "portal-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Road 1, Banjara Hills, Hyderabad, Telangana, India","address":{"road":"Road 1","suburb":"Banjara Hills","city":"Hyderabad","state":"Telangana"}}`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "portal-test", time.Second)
	addr, err := client.Reverse(context.Background(), Position{Latitude: 17.385, Longitude: 78.4867})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if got := addr.ShortText(); got != "Road 1, Banjara Hills, Hyderabad, Telangana" {
		t.Fatalf("short text %q", got)
	}
}

func TestNominatimReverseNoAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	_, err := NewNominatimClient(server.URL, "", time.Second).Reverse(context.Background(), Position{})
	if err != ErrNoAddress {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
}

func TestShortTextFallsBackToDisplayName(t *testing.T) {
	addr := Address{DisplayName: "Somewhere"}
	if addr.ShortText() != "Somewhere" {
		t.Fatalf("unexpected %q", addr.ShortText())
	}
}
