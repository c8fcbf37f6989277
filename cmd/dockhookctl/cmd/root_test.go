package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestReadPayloadArg(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr bool
	}{
		{
			name: "inline json object",
			arg:  `{"key":"value","number":42}`,
			want: `{"key":"value","number":42}`,
		},
		{
			name: "inline json array",
			arg:  `[1,2,3]`,
			want: `[1,2,3]`,
		},
		{
			name:    "invalid json",
			arg:     `{"key":"value",}`,
			wantErr: true,
		},
		{
			name:    "empty string",
			arg:     ``,
			wantErr: true,
		},
		{
			name:    "missing file",
			arg:     `@/does/not/exist.json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayloadArg(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readPayloadArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("readPayloadArg() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReadPayloadArgFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := readPayloadArg("@" + path)
	if err != nil {
		t.Fatalf("readPayloadArg() error = %v", err)
	}
	if string(got) != `{"from":"file"}` {
		t.Errorf("readPayloadArg() = %s, want file contents", got)
	}
}

func TestAPIRequest(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/v1/ping":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message":"pong"}`))
		case "/v1/subscriptions/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"subscription not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		}
	}))
	defer srv.Close()

	viper.Set("server", srv.URL)
	viper.Set("timeout", "5s")
	viper.Set("token", "test-token")
	t.Cleanup(func() {
		viper.Set("server", "")
		viper.Set("token", "")
	})

	t.Run("success decodes response", func(t *testing.T) {
		var out struct {
			Message string `json:"message"`
		}
		if err := apiRequest(http.MethodGet, "/v1/ping", nil, &out); err != nil {
			t.Fatalf("apiRequest() error = %v", err)
		}
		if out.Message != "pong" {
			t.Errorf("message = %q, want %q", out.Message, "pong")
		}
		if gotAuth != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", gotAuth)
		}
		if gotPath != "/v1/ping" {
			t.Errorf("path = %q, want /v1/ping", gotPath)
		}
	})

	t.Run("api error surfaces the error field", func(t *testing.T) {
		err := apiRequest(http.MethodGet, "/v1/subscriptions/missing", nil, nil)
		if err == nil {
			t.Fatal("apiRequest() error = nil, want error for 404")
		}
		if !strings.Contains(err.Error(), "subscription not found") {
			t.Errorf("error = %q, want it to contain the API error message", err)
		}
	})

	t.Run("non-json error body", func(t *testing.T) {
		err := apiRequest(http.MethodGet, "/v1/other", nil, nil)
		if err == nil {
			t.Fatal("apiRequest() error = nil, want error for 500")
		}
		if !strings.Contains(err.Error(), "500") {
			t.Errorf("error = %q, want it to mention the status code", err)
		}
	})
}

func TestPrintOutput(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printOutput() panicked: %v", r)
		}
	}()

	viper.Set("json", true)
	printOutput(map[string]any{"key": "value"}, func() {})
	viper.Set("json", false)

	called := false
	printOutput(map[string]any{"key": "value"}, func() { called = true })
	if !called {
		t.Error("human formatter not called when json output is disabled")
	}
}
