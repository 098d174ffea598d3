package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"complete", Descriptor{BaseURL: "http://h", Token: "t", PluginID: "p"}, false},
		{"no token is fine", Descriptor{BaseURL: "http://h", PluginID: "p"}, false},
		{"missing base url", Descriptor{PluginID: "p"}, true},
		{"missing plugin id", Descriptor{BaseURL: "http://h"}, true},
		{"whitespace base url", Descriptor{BaseURL: "  ", PluginID: "p"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResult_OK(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   bool
	}{
		{"success", &Result{Code: 0, Data: json.RawMessage(`{}`)}, true},
		{"nonzero code", &Result{Code: 1, Data: json.RawMessage(`{}`)}, false},
		{"no data", &Result{Code: 0}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	var gotPath, gotAuth, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{"enabled":true,"has_client":false,"running":true}}`))
	}))
	defer server.Close()

	c := New(server.URL, "secret-token")

	result, err := c.Get(context.Background(), "plugin/p115/get_status")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if gotPath != "/api/v1/plugin/p115/get_status" {
		t.Errorf("request path = %q, want %q", gotPath, "/api/v1/plugin/p115/get_status")
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}

	if !result.OK() {
		t.Fatalf("result not OK: %+v", result)
	}

	var data map[string]bool
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data["enabled"] || data["has_client"] || !data["running"] {
		t.Errorf("data = %v, want enabled+running", data)
	}
}

func TestClient_Get_NoTokenOmitsAuthorization(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"code":0,"data":{}}`))
	}))
	defer server.Close()

	c := New(server.URL, "")

	if _, err := c.Get(context.Background(), "plugin/x/get_status"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClient_Get_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such plugin", http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL, "")

	_, err := c.Get(context.Background(), "plugin/missing/get_status")
	if err == nil {
		t.Fatal("Get returned nil error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention the status code", err)
	}
}

func TestClient_Get_StructuredFailurePassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"msg":"client not configured"}`))
	}))
	defer server.Close()

	c := New(server.URL, "")

	result, err := c.Get(context.Background(), "plugin/p/get_status")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if result.OK() {
		t.Error("structured failure reported as OK")
	}
	if result.Msg != "client not configured" {
		t.Errorf("Msg = %q, want host message", result.Msg)
	}
}

func TestFromDescriptor(t *testing.T) {
	c, err := FromDescriptor(Descriptor{BaseURL: "http://host:17420/", PluginID: "p"})
	if err != nil {
		t.Fatalf("FromDescriptor returned error: %v", err)
	}

	if got := c.BaseURL(); got != "http://host:17420" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", got)
	}

	if _, err := FromDescriptor(Descriptor{}); err == nil {
		t.Error("FromDescriptor accepted an empty descriptor")
	}
}
