package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranslateSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/translate" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"translatedText":"Hello"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/translate", "")
	text, err := c.Translate(context.Background(), "こんにちは", "ja", "en")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
	want := map[string]any{"q": "こんにちは", "source": "ja", "target": "en", "format": "text"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["api_key"]; ok {
		t.Error("api_key sent without a configured key")
	}
}

func TestTranslateSendsAPIKey(t *testing.T) {
	var req Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"translatedText":"ok"}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL+"/translate", "secret").Translate(context.Background(), "a", "ja", "en"); err != nil {
		t.Fatal(err)
	}
	if req.APIKey != "secret" {
		t.Errorf("api_key = %q", req.APIKey)
	}
}

func TestTranslateFailures(t *testing.T) {
	for _, tt := range []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"server error", 500, `{"error":"internal"}`, "internal"},
		{"bad request plain body", 400, "nope", "nope"},
		{"malformed json", 200, "{", "decode"},
		{"missing field", 200, `{}`, "translatedText"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL+"/translate", "").Translate(context.Background(), "x", "ja", "en")
			if !errors.Is(err, ErrTranslation) {
				t.Fatalf("err = %v, want ErrTranslation", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("err = %v, want detail %q", err, tt.detail)
			}
		})
	}
}

func TestTranslateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/translate"
	srv.Close()

	if _, err := New(url, "").Translate(context.Background(), "x", "ja", "en"); !errors.Is(err, ErrTranslation) {
		t.Fatalf("err = %v, want ErrTranslation", err)
	}
}

func TestTranslateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL+"/translate", "").Translate(ctx, "x", "ja", "en")
	if !errors.Is(err, ErrTranslation) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestLanguagesURL(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"http://localhost:5000/translate", "http://localhost:5000/languages"},
		{"https://x.example/api/translate?k=1", "https://x.example/api/languages?k=1"},
		{"http://localhost:5000/", "http://localhost:5000/languages"},
	} {
		if got := LanguagesURL(tt.in); got != tt.want {
			t.Errorf("LanguagesURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLanguages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/languages" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"code":"en","name":"English","targets":["ja"]},{"code":"ja","name":"Japanese","targets":["en"]}]`))
	}))
	defer srv.Close()

	langs, err := New(srv.URL+"/translate", "").Languages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 2 || langs[1].Code != "ja" || langs[1].Targets[0] != "en" {
		t.Errorf("langs = %+v", langs)
	}
}

func TestLanguagesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := New(srv.URL+"/translate", "").Languages(context.Background()); !errors.Is(err, ErrLanguages) {
		t.Fatalf("err = %v, want ErrLanguages", err)
	}
}

func TestLanguagesRejectsNonArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"unexpected"}`)
	}))
	defer srv.Close()

	langs, err := New(srv.URL+"/translate", "").Languages(context.Background())
	if !errors.Is(err, ErrLanguages) || langs != nil {
		t.Fatalf("Languages = %v, %v, want ErrLanguages", langs, err)
	}
}
