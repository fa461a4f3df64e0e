package geoip

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupResolvesPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","country":"India","regionName":"Karnataka","city":"Bengaluru","query":"203.0.113.7"}`)
	}))
	defer srv.Close()

	client := &Client{APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	loc, err := client.Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if loc == nil || loc.Country != "India" {
		t.Fatalf("loc = %+v, want India", loc)
	}
	if got := loc.Describe(); got != "Bengaluru, Karnataka, India" {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestLookupSkipsPrivateAndInvalidAddresses(t *testing.T) {
	client := &Client{APIBaseURL: "http://localhost:0", HTTPClient: http.DefaultClient}
	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.1.2.3", "192.168.1.5", "0.0.0.0"} {
		loc, err := client.Lookup(context.Background(), ip)
		if err != nil || loc != nil {
			t.Fatalf("Lookup(%q) = (%v, %v), want (nil, nil)", ip, loc, err)
		}
	}
}

func TestLookupUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"fail","message":"reserved range","query":"203.0.113.8"}`)
	}))
	defer srv.Close()

	client := &Client{APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := client.Lookup(context.Background(), "203.0.113.8"); err == nil {
		t.Fatalf("expected error for upstream fail status")
	}

	// CountryFor swallows the failure.
	if got := client.CountryFor(context.Background(), "203.0.113.8"); got != "" {
		t.Fatalf("CountryFor() = %q, want empty on failure", got)
	}
}

func TestDescribeSkipsEmptyParts(t *testing.T) {
	loc := &Location{Country: "India"}
	if got := loc.Describe(); got != "India" {
		t.Fatalf("Describe() = %q, want %q", got, "India")
	}
	var nilLoc *Location
	if got := nilLoc.Describe(); got != "" {
		t.Fatalf("Describe() on nil = %q, want empty", got)
	}
}
