package workflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// EventWorkflowFinished is the streaming event that carries the final outputs.
const EventWorkflowFinished = "workflow_finished"

// maxEventSize bounds a single SSE line. Workflow outputs with many long
// matches can exceed bufio's 64KB default.
const maxEventSize = 4 * 1024 * 1024

var dataPrefix = []byte("data: ")

// Event is one item of a streaming response.
// Exactly one of Data and Err is set.
type Event struct {
	// Name is the "event" field of the payload, if present.
	Name string

	// Data is the JSON payload after the "data: " prefix.
	Data json.RawMessage

	// Err describes a payload that could not be parsed.
	Err string

	// RawLine is the offending line when Err is set.
	RawLine string
}

// IsError reports whether the event is an inline parse error.
func (e Event) IsError() bool {
	return e.Err != ""
}

// Stream executes the workflow in streaming mode and calls fn for every event.
//
// Lines that do not start with "data: " are skipped, and a payload that is
// not valid JSON is delivered as an inline error event. With StrictStream
// both cases end the stream with ErrMalformedStream instead. If fn returns
// an error the stream is closed and that error is returned.
func (c *Client) Stream(ctx context.Context, inputs Inputs, fn func(Event) error) error {
	start := time.Now()
	err := c.stream(ctx, inputs, fn)
	c.observe(ModeStreaming, start, err)
	return err
}

func (c *Client) stream(ctx context.Context, inputs Inputs, fn func(Event) error) error {
	resp, err := c.post(ctx, inputs, ModeStreaming)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return readEvents(ctx, resp.Body, c.strict, fn)
}

// readEvents parses an SSE body line by line.
func readEvents(ctx context.Context, r io.Reader, strict bool, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		if !bytes.HasPrefix(line, dataPrefix) {
			if strict {
				return fmt.Errorf("%w: unexpected line %q", ErrMalformedStream, line)
			}
			continue
		}

		ev := parseEvent(line)
		if ev.IsError() && strict {
			return fmt.Errorf("%w: %s: %s", ErrMalformedStream, ev.Err, ev.RawLine)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return nil
}

// parseEvent decodes one "data: " line.
func parseEvent(line []byte) Event {
	payload := line[len(dataPrefix):]

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Event{
			Err:     "Failed to parse JSON: " + err.Error(),
			RawLine: string(line),
		}
	}

	ev := Event{Data: append(json.RawMessage(nil), payload...)}
	if obj, ok := decoded.(map[string]any); ok {
		if name, ok := obj["event"].(string); ok {
			ev.Name = name
		}
	}
	return ev
}
