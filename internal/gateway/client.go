// Package gateway is the request/response boundary to the exam-management service.
//
// Every creation call is classified into exactly one Outcome kind, and that
// classification is applied the same way to every entity kind. Listing calls
// return raw page envelopes; decoding of string-encoded nested fields lives in
// codec.go.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"examseed/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// OUTCOMES
// =============================================================================

// OutcomeKind classifies one remote creation call.
type OutcomeKind int

const (
	Created OutcomeKind = iota
	Rejected
	Duplicate
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Rejected:
		return "rejected"
	case Duplicate:
		return "duplicate"
	case TransportFailure:
		return "transport_failure"
	}
	return "unknown"
}

// Outcome is the normalized result of one creation call.
// StatusCode is 0 when no HTTP response was received or the payload was never sent.
type Outcome struct {
	Kind       OutcomeKind
	ID         int64
	StatusCode int
	Message    string
	Err        error
}

// Failed reports whether the outcome counts as a failure. Duplicates are skips.
func (o Outcome) Failed() bool {
	return o.Kind == Rejected || o.Kind == TransportFailure
}

func (o Outcome) String() string {
	switch o.Kind {
	case Created:
		return fmt.Sprintf("created id=%d", o.ID)
	case TransportFailure:
		return fmt.Sprintf("transport failure: %v", o.Err)
	default:
		return fmt.Sprintf("%s (%d): %s", o.Kind, o.StatusCode, o.Message)
	}
}

// DuplicatePredicate decides whether an error response means "already exists".
type DuplicatePredicate func(status int, body string) bool

// ContainsMarker matches 5xx responses whose body contains any of markers.
func ContainsMarker(markers ...string) DuplicatePredicate {
	return func(status int, body string) bool {
		if status < 500 || status > 599 {
			return false
		}
		for _, m := range markers {
			if m != "" && strings.Contains(body, m) {
				return true
			}
		}
		return false
	}
}

// DefaultDuplicateMarker is the message the service returns for unique-key violations.
const DefaultDuplicateMarker = "Duplicate entry"

// maxExcerpt caps the response body kept in a Rejected outcome.
const maxExcerpt = 300

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Pacing is the minimum gap between two creation calls. Zero disables it.
	Pacing      time.Duration
	IsDuplicate DuplicatePredicate
}

// DefaultConfig returns the settings the seeding scripts always used.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:8080",
		Timeout:     10 * time.Second,
		Pacing:      300 * time.Millisecond,
		IsDuplicate: ContainsMarker(DefaultDuplicateMarker),
	}
}

// Client talks to the exam-management service. Calls are meant to be issued
// sequentially; the mutex only guards the pacing clock.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	pacing      time.Duration
	isDuplicate DuplicatePredicate
	validate    *validator.Validate
	logger      *zap.Logger

	mu         sync.Mutex
	lastCreate time.Time
}

// New creates a Client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.IsDuplicate == nil {
		cfg.IsDuplicate = ContainsMarker(DefaultDuplicateMarker)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		pacing:      cfg.Pacing,
		isDuplicate: cfg.IsDuplicate,
		validate:    newValidator(),
		logger:      logger,
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// endpoint describes the creation call for one entity kind.
type endpoint struct {
	path        string
	parentParam string
	idKey       string
}

var endpoints = map[types.EntityKind]endpoint{
	types.KindRegion:      {path: "/addregion", idKey: "regionId"},
	types.KindCentre:      {path: "/addExamCentre", parentParam: "regionId", idKey: "centreId"},
	types.KindSchool:      {path: "/addSchool", parentParam: "centreId", idKey: "schoolId"},
	types.KindStudent:     {path: "/addStudent", parentParam: "schoolId", idKey: "studentId"},
	types.KindExam:        {path: "/addExam", idKey: "examNo"},
	types.KindApplication: {path: "/fill-form", idKey: "applicationId"},
	types.KindResult:      {path: "/addExamResult", idKey: "resultId"},
}

// Create issues one creation call and classifies the response. parentID is
// ignored for kinds that have no parent query parameter.
func (c *Client) Create(ctx context.Context, kind types.EntityKind, parentID int64, body any) Outcome {
	ep, ok := endpoints[kind]
	if !ok {
		return rejectLocally(fmt.Sprintf("unknown entity kind %q", kind))
	}

	target := c.baseURL + ep.path
	if ep.parentParam != "" {
		if parentID <= 0 {
			return rejectLocally(fmt.Sprintf("%s requires a %s", kind, ep.parentParam))
		}
		target += "?" + url.Values{ep.parentParam: {strconv.FormatInt(parentID, 10)}}.Encode()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return rejectLocally(fmt.Sprintf("failed to marshal %s: %v", kind, err))
	}

	if err := c.pace(ctx); err != nil {
		return Outcome{Kind: TransportFailure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	reqID := c.stamp(req)

	log := c.logger.With(zap.String("kind", string(kind)), zap.String("request_id", reqID))
	log.Debug("create", zap.String("url", target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("transport failure", zap.Error(err))
		return Outcome{Kind: TransportFailure, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: TransportFailure, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	out := c.classify(resp.StatusCode, respBody, ep.idKey)
	log.Debug("classified", zap.Stringer("outcome", out.Kind), zap.Int("status", resp.StatusCode))
	return out
}

// classify maps an HTTP response to an Outcome.
func (c *Client) classify(status int, body []byte, idKey string) Outcome {
	if status >= 200 && status < 300 {
		return Outcome{Kind: Created, ID: extractID(body, idKey), StatusCode: status}
	}
	text := string(body)
	if c.isDuplicate(status, text) {
		return Outcome{Kind: Duplicate, StatusCode: status, Message: excerpt(text)}
	}
	return Outcome{Kind: Rejected, StatusCode: status, Message: excerpt(text)}
}

// pace blocks until the minimum gap since the previous creation call has elapsed.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pacing > 0 && !c.lastCreate.IsZero() {
		if wait := c.pacing - time.Since(c.lastCreate); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	c.lastCreate = time.Now()
	return nil
}

func (c *Client) stamp(req *http.Request) string {
	id := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id)
	return id
}

// =============================================================================
// LISTING
// =============================================================================

// StatusError is returned by list calls that receive a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// ListPage fetches one page envelope of a collection.
func (c *Client) ListPage(ctx context.Context, collection types.Collection, page, size int) (types.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var env types.Page
	if err := c.get(ctx, "/"+string(collection)+"?"+q.Encode(), &env); err != nil {
		return types.Page{}, fmt.Errorf("list %s page %d: %w", collection, page, err)
	}
	return env, nil
}

// ListAll fetches a whole collection from its non-paginated legacy endpoint.
func (c *Client) ListAll(ctx context.Context, collection types.Collection) ([]json.RawMessage, error) {
	path := collection.LegacyPath()
	if path == "" {
		return nil, fmt.Errorf("no legacy list for %s", collection)
	}
	var items []json.RawMessage
	if err := c.get(ctx, "/"+path, &items); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	reqID := c.stamp(req)
	c.logger.Debug("list", zap.String("path", path), zap.String("request_id", reqID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: excerpt(string(body))}
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func rejectLocally(msg string) Outcome {
	return Outcome{Kind: Rejected, Message: msg}
}

// extractID reads idKey (or "id") from a JSON object body. Non-object bodies yield 0.
func extractID(body []byte, idKey string) int64 {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0
	}
	for _, key := range []string{idKey, "id"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if id, ok := parseID(raw); ok {
			return id
		}
	}
	return 0
}

func parseID(raw json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if id, err := n.Int64(); err == nil {
			return id, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// excerpt trims and caps a response body for logs and outcomes.
func excerpt(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	r := []rune(body)
	if len(r) > maxExcerpt {
		return string(r[:maxExcerpt]) + "..."
	}
	return body
}
