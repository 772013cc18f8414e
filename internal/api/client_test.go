package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

func sampleRoutine(id string) models.Routine {
	return models.Routine{
		ID:        id,
		Title:     "Read",
		StartTime: time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 21, 30, 0, 0, time.UTC),
		Frequency: constants.FrequencyDaily,
		Status:    constants.StatusActive,
		CompletionStatus: []models.CompletionEntry{
			{Date: models.MustParseDate("2024-01-02"), Completed: true},
			{Date: models.MustParseDate("2024-01-01"), Completed: false},
		},
	}
}

func TestListRoutines(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/routines" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]models.Routine{sampleRoutine("r1")})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret")
	routines, err := c.ListRoutines(context.Background(), storage.Filter{Status: constants.StatusActive, UserID: "u1"})
	if err != nil {
		t.Fatalf("ListRoutines() error = %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery != "status=active&userId=u1" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(routines) != 1 || routines[0].ID != "r1" {
		t.Fatalf("routines = %+v", routines)
	}
	if routines[0].CompletionStatus[0].Date.String() != "2024-01-01" {
		t.Errorf("ledger should be normalized by date, got %+v", routines[0].CompletionStatus)
	}
}

func TestListRoutinesNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("empty filter should send no query, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	routines, err := New(srv.URL, "").ListRoutines(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("ListRoutines() error = %v", err)
	}
	if routines == nil || len(routines) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", routines)
	}
}

func TestCreateRoutine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/routines" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if _, ok := body["id"]; ok {
			t.Error("draft must not carry an id")
		}
		if ledger, ok := body["completionStatus"].([]any); !ok || len(ledger) != 0 {
			t.Errorf("completionStatus = %#v, want empty array", body["completionStatus"])
		}
		w.WriteHeader(http.StatusCreated)
		created := sampleRoutine("srv-1")
		created.CompletionStatus = nil
		_ = json.NewEncoder(w).Encode(created)
	}))
	defer srv.Close()

	draft := sampleRoutine("").Draft()
	draft.CompletionStatus = nil
	created, err := New(srv.URL, "").CreateRoutine(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreateRoutine() error = %v", err)
	}
	if created.ID != "srv-1" {
		t.Errorf("ID = %q, want srv-1", created.ID)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
		notFound   bool
	}{
		{"json message", http.StatusBadRequest, `{"message":"title is required"}`, 400, "title is required", false},
		{"json error field", http.StatusConflict, `{"error":"conflict"}`, 409, "conflict", false},
		{"plain text", http.StatusInternalServerError, "boom\n", 500, "boom", false},
		{"empty body", http.StatusBadGateway, "", 502, "Bad Gateway", false},
		{"not found", http.StatusNotFound, `{"message":"no such routine"}`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "").UpdateRoutine(context.Background(), sampleRoutine("r1"))
			if tt.notFound {
				var nf *apperrors.NotFoundError
				if !errors.As(err, &nf) || nf.ID != "r1" {
					t.Fatalf("expected NotFoundError for r1, got %v", err)
				}
				return
			}
			var perr *apperrors.PersistenceError
			if !errors.As(err, &perr) {
				t.Fatalf("expected PersistenceError, got %T (%v)", err, err)
			}
			if perr.Status != tt.wantStatus || perr.Message != tt.wantMsg {
				t.Errorf("got status=%d message=%q, want %d %q", perr.Status, perr.Message, tt.wantStatus, tt.wantMsg)
			}
			if perr.Op != "update routine" {
				t.Errorf("Op = %q", perr.Op)
			}
		})
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(srv.URL, "").DeleteRoutine(ctx, "r1")
	var netErr *apperrors.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T (%v)", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline in the chain, got %v", err)
	}
	if !apperrors.IsPersistence(err) {
		t.Error("network errors should also match ErrPersistence")
	}
}

func TestDeleteRemindersFor(t *testing.T) {
	var mu sync.Mutex
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/reminders":
			if r.URL.Query().Get("entityType") != "routine" || r.URL.Query().Get("entityId") != "r1" {
				t.Errorf("unexpected reminder query %q", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode([]models.Reminder{
				{ID: "m1", EntityType: "routine", EntityID: "r1"},
				{ID: "m2", EntityType: "routine", EntityID: "r1"},
				{ID: "gone", EntityType: "routine", EntityID: "r1"},
			})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/reminders/"):
			id := strings.TrimPrefix(r.URL.Path, "/reminders/")
			if id == "gone" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	if err := New(srv.URL, "").DeleteRemindersFor(context.Background(), constants.EntityTypeRoutine, "r1"); err != nil {
		t.Fatalf("DeleteRemindersFor() error = %v", err)
	}
	if len(deleted) != 2 || deleted[0] != "m1" || deleted[1] != "m2" {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestDeleteRemindersForJoinsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode([]models.Reminder{{ID: "m1"}, {ID: "m2"}})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "").DeleteRemindersFor(context.Background(), constants.EntityTypeRoutine, "r1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if strings.Count(err.Error(), "delete reminder failed") != 2 {
		t.Errorf("expected both failures to be reported, got %v", err)
	}
}
