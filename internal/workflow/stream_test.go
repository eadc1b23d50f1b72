package workflow

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// collect reads all events from an SSE body.
func collect(t *testing.T, body string, strict bool) ([]Event, error) {
	t.Helper()

	var events []Event
	err := readEvents(context.Background(), strings.NewReader(body), strict, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

// TestReadEvents tests SSE parsing in lenient and strict mode.
func TestReadEvents(t *testing.T) {
	t.Parallel()

	t.Run("yields one event per data line", func(t *testing.T) {
		t.Parallel()

		body := "data: {\"event\":\"workflow_started\"}\n\n" +
			"data: {\"event\":\"node_finished\"}\n\n" +
			"data: {\"event\":\"workflow_finished\",\"data\":{}}\n\n"

		events, err := collect(t, body, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[2].Name != EventWorkflowFinished {
			t.Errorf("expected last event %q, got %q", EventWorkflowFinished, events[2].Name)
		}
	})

	t.Run("skips non-data lines", func(t *testing.T) {
		t.Parallel()

		body := "event: ping\n: keep-alive\nid: 7\ndata: {\"event\":\"ping\"}\n"

		events, err := collect(t, body, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 || events[0].Name != "ping" {
			t.Errorf("expected only the data event, got %+v", events)
		}
	})

	t.Run("handles CRLF line endings", func(t *testing.T) {
		t.Parallel()

		events, err := collect(t, "data: {\"event\":\"a\"}\r\n\r\n", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 || events[0].Name != "a" {
			t.Errorf("unexpected events %+v", events)
		}
	})

	t.Run("bad JSON becomes an inline error event", func(t *testing.T) {
		t.Parallel()

		body := "data: {not json}\ndata: {\"event\":\"after\"}\n"

		events, err := collect(t, body, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected stream to continue past the error, got %d events", len(events))
		}
		if !events[0].IsError() {
			t.Fatal("expected first event to be an error")
		}
		if !strings.HasPrefix(events[0].Err, "Failed to parse JSON") {
			t.Errorf("unexpected error text %q", events[0].Err)
		}
		if events[0].RawLine != "data: {not json}" {
			t.Errorf("unexpected raw line %q", events[0].RawLine)
		}
		if events[1].Name != "after" {
			t.Errorf("expected stream to continue, got %+v", events[1])
		}
	})

	t.Run("strict mode rejects non-data lines", func(t *testing.T) {
		t.Parallel()

		_, err := collect(t, "event: ping\ndata: {}\n", true)
		if !errors.Is(err, ErrMalformedStream) {
			t.Errorf("expected ErrMalformedStream, got %v", err)
		}
	})

	t.Run("strict mode rejects bad JSON", func(t *testing.T) {
		t.Parallel()

		_, err := collect(t, "data: {oops\n", true)
		if !errors.Is(err, ErrMalformedStream) {
			t.Errorf("expected ErrMalformedStream, got %v", err)
		}
	})

	t.Run("callback error stops the stream", func(t *testing.T) {
		t.Parallel()

		stop := errors.New("stop")
		count := 0
		err := readEvents(context.Background(), strings.NewReader("data: {}\ndata: {}\n"), false, func(Event) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("expected callback error, got %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 callback, got %d", count)
		}
	})
}

// sseServer serves a fixed SSE body.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			http.Error(w, "expected event-stream accept header", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, body)
	}))
}

// TestClientLookupStream tests decoding of the workflow_finished event.
func TestClientLookupStream(t *testing.T) {
	t.Parallel()

	finished := `data: {"event":"workflow_finished","data":{"status":"succeeded","outputs":{"result":[{"content":"X","metadata":{"score":0.9}}]}}}` + "\n\n"

	t.Run("decodes final outputs", func(t *testing.T) {
		t.Parallel()

		srv := sseServer(t, "data: {\"event\":\"workflow_started\"}\n\n"+finished)
		defer srv.Close()

		c := newTestClient(t, srv.URL, false)
		outcome, err := c.LookupStream(context.Background(), "句子")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		matched, ok := outcome.(Matched)
		if !ok {
			t.Fatalf("expected Matched, got %T", outcome)
		}
		if len(matched.Matches) != 1 || matched.Matches[0].Content != "X" {
			t.Errorf("unexpected matches %+v", matched.Matches)
		}
		if matched.Matches[0].ScoreLiteral() != "0.9" {
			t.Errorf("expected score literal 0.9, got %q", matched.Matches[0].ScoreLiteral())
		}
	})

	t.Run("lenient mode tolerates garbage and missing final event", func(t *testing.T) {
		t.Parallel()

		srv := sseServer(t, "data: {broken\nevent: ping\n")
		defer srv.Close()

		c := newTestClient(t, srv.URL, false)
		outcome, err := c.LookupStream(context.Background(), "句子")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m, ok := outcome.(Matched); !ok || len(m.Matches) != 0 {
			t.Errorf("expected empty Matched, got %+v", outcome)
		}
	})

	t.Run("strict mode requires the final event", func(t *testing.T) {
		t.Parallel()

		srv := sseServer(t, "data: {\"event\":\"workflow_started\"}\n\n")
		defer srv.Close()

		c := newTestClient(t, srv.URL, true)
		outcome, err := c.LookupStream(context.Background(), "句子")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := outcome.(Malformed); !ok {
			t.Errorf("expected Malformed, got %T", outcome)
		}
	})

	t.Run("strict mode turns garbage into Malformed", func(t *testing.T) {
		t.Parallel()

		srv := sseServer(t, "data: {broken\n\n"+finished)
		defer srv.Close()

		c := newTestClient(t, srv.URL, true)
		outcome, err := c.LookupStream(context.Background(), "句子")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		malformed, ok := outcome.(Malformed)
		if !ok {
			t.Fatalf("expected Malformed, got %T", outcome)
		}
		if !strings.Contains(malformed.Reason, "Failed to parse JSON") {
			t.Errorf("expected parse error in reason, got %q", malformed.Reason)
		}
		if !errors.Is(malformed.Err(), ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", malformed.Err())
		}
	})

	t.Run("strict mode turns stray lines into Malformed", func(t *testing.T) {
		t.Parallel()

		srv := sseServer(t, "event: ping\n"+finished)
		defer srv.Close()

		c := newTestClient(t, srv.URL, true)
		outcome, err := c.LookupStream(context.Background(), "句子")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := outcome.(Malformed); !ok {
			t.Errorf("expected Malformed, got %T", outcome)
		}
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, false)
		_, err := c.LookupStream(context.Background(), "句子")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502 StatusError, got %v", err)
		}
	})
}
