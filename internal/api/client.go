// Package api talks to the dashboard REST API that owns routines and
// reminders. It implements storage.Provider and storage.ReminderProvider.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

const maxErrorBody = 64 << 10

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request made by the default client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: constants.DefaultAPITimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) ListRoutines(ctx context.Context, filter storage.Filter) ([]models.Routine, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.UserID != "" {
		q.Set("userId", filter.UserID)
	}
	path := "/routines"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var routines []models.Routine
	if err := c.do(ctx, "list routines", http.MethodGet, path, nil, &routines); err != nil {
		return nil, err
	}
	if routines == nil {
		routines = []models.Routine{}
	}
	for i := range routines {
		ledger.Normalize(&routines[i])
	}
	return routines, nil
}

func (c *Client) CreateRoutine(ctx context.Context, draft models.RoutineDraft) (models.Routine, error) {
	if draft.CompletionStatus == nil {
		draft.CompletionStatus = []models.CompletionEntry{}
	}
	var created models.Routine
	if err := c.do(ctx, "create routine", http.MethodPost, "/routines", draft, &created); err != nil {
		return models.Routine{}, err
	}
	if created.ID == "" {
		return models.Routine{}, &apperrors.PersistenceError{Op: "create routine", Message: "response carried no routine id"}
	}
	ledger.Normalize(&created)
	return created, nil
}

func (c *Client) UpdateRoutine(ctx context.Context, routine models.Routine) (models.Routine, error) {
	if routine.CompletionStatus == nil {
		routine.CompletionStatus = []models.CompletionEntry{}
	}
	var updated models.Routine
	err := c.do(ctx, "update routine", http.MethodPut, "/routines/"+url.PathEscape(routine.ID), routine, &updated)
	if err != nil {
		return models.Routine{}, notFoundAs(err, routine.ID)
	}
	if updated.ID == "" {
		updated.ID = routine.ID
	}
	ledger.Normalize(&updated)
	return updated, nil
}

func (c *Client) DeleteRoutine(ctx context.Context, id string) error {
	err := c.do(ctx, "delete routine", http.MethodDelete, "/routines/"+url.PathEscape(id), nil, nil)
	return notFoundAs(err, id)
}

// DeleteRemindersFor looks up the entity's reminders and deletes each one.
// Every reminder is attempted; the failures are joined.
func (c *Client) DeleteRemindersFor(ctx context.Context, entityType, entityID string) error {
	q := url.Values{}
	q.Set("entityType", entityType)
	q.Set("entityId", entityID)

	var reminders []models.Reminder
	if err := c.do(ctx, "list reminders", http.MethodGet, "/reminders?"+q.Encode(), nil, &reminders); err != nil {
		return err
	}

	var errs []error
	for _, r := range reminders {
		err := c.do(ctx, "delete reminder", http.MethodDelete, "/reminders/"+url.PathEscape(r.ID), nil, nil)
		if err != nil && !apperrors.IsNotFound(notFoundAs(err, r.ID)) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &apperrors.PersistenceError{Op: op, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &apperrors.PersistenceError{Op: op, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("API request failed", "op", op, "method", method, "path", path, "error", err)
		return &apperrors.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	logger.Debug("API request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperrors.PersistenceError{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return &apperrors.NetworkError{Op: op, Err: err}
		}
		return &apperrors.PersistenceError{Op: op, Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	return nil
}

// readErrorMessage prefers the API's {"message": ...} body, then the raw text,
// then the status text.
func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func notFoundAs(err error, id string) error {
	var perr *apperrors.PersistenceError
	if errors.As(err, &perr) && perr.Status == http.StatusNotFound {
		return &apperrors.NotFoundError{ID: id}
	}
	return err
}

var (
	_ storage.Provider         = (*Client)(nil)
	_ storage.ReminderProvider = (*Client)(nil)
)

// String identifies the client in logs without leaking the token
func (c *Client) String() string {
	return fmt.Sprintf("api(%s)", c.baseURL)
}
