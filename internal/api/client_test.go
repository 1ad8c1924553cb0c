package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:3000/", WithTimeout(5*time.Second))

	if client.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %s, want http://localhost:3000", client.BaseURL)
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
	}
}

func TestListImages(t *testing.T) {
	tests := []struct {
		name       string
		after      string
		wantQuery  string
		response   string
		wantCount  int
		wantCursor string
	}{
		{
			name:       "first page omits cursor",
			after:      "",
			wantQuery:  "",
			response:   `{"data":[{"id":"1","title":"a","description":"d","url":"http://x/1.png","ts":10}],"after":"c2"}`,
			wantCount:  1,
			wantCursor: "c2",
		},
		{
			name:       "last page has null cursor",
			after:      "c2",
			wantQuery:  "after=c2",
			response:   `{"data":[{"id":"2"},{"id":"3"}],"after":null}`,
			wantCount:  2,
			wantCursor: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Method = %s, want GET", r.Method)
				}
				if r.URL.Path != ImagesPath {
					t.Errorf("Path = %s, want %s", r.URL.Path, ImagesPath)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("Query = %q, want %q", r.URL.RawQuery, tt.wantQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			page, err := NewClient(server.URL).ListImages(context.Background(), tt.after)
			if err != nil {
				t.Fatalf("ListImages() error = %v", err)
			}
			if len(page.Data) != tt.wantCount {
				t.Errorf("len(Data) = %d, want %d", len(page.Data), tt.wantCount)
			}
			if page.NextCursor() != tt.wantCursor {
				t.Errorf("NextCursor() = %q, want %q", page.NextCursor(), tt.wantCursor)
			}
		})
	}
}

func TestListImages_DecodesRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"abc","title":"Dog","description":"A dog","url":"http://x/dog.png","ts":1620000000}],"after":null}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL).ListImages(context.Background(), "")
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}

	want := models.ImageRecord{ID: "abc", Title: "Dog", Description: "A dog", URL: "http://x/dog.png", Timestamp: 1620000000}
	if page.Data[0] != want {
		t.Errorf("record = %+v, want %+v", page.Data[0], want)
	}
}

func TestCreateImage(t *testing.T) {
	var got models.ImageInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.ImageRecord{ID: "new", Title: got.Title, Description: got.Description, URL: got.URL})
	}))
	defer server.Close()

	input := models.ImageInput{URL: "http://cdn/x.png", Title: "ab", Description: "ok"}
	record, err := NewClient(server.URL).CreateImage(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	if got != input {
		t.Errorf("body = %+v, want %+v", got, input)
	}
	if record.ID != "new" {
		t.Errorf("ID = %s, want new", record.ID)
	}
}

func TestRequestFailed(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).CreateImage(context.Background(), models.ImageInput{})
		if !errors.Is(err, ErrRequestFailed) {
			t.Fatalf("error = %v, want ErrRequestFailed", err)
		}

		var reqErr *RequestFailedError
		if !errors.As(err, &reqErr) {
			t.Fatalf("error is not *RequestFailedError: %T", err)
		}
		if reqErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
		}
		if reqErr.Body != "boom" {
			t.Errorf("Body = %q, want boom", reqErr.Body)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewClient(url).ListImages(context.Background(), "")
		var reqErr *RequestFailedError
		if !errors.As(err, &reqErr) {
			t.Fatalf("error = %v, want *RequestFailedError", err)
		}
		if reqErr.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0", reqErr.StatusCode)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).ListImages(context.Background(), "")
		if !errors.Is(err, ErrRequestFailed) {
			t.Errorf("error = %v, want ErrRequestFailed", err)
		}
	})
}

func TestNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, _ = NewClient(server.URL).ListImages(context.Background(), "")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
