package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/dupcheck/internal/model"
)

// Outcome is the decoded result of one workflow run.
// It is either Matched or Malformed.
//
// Design decision: The response is walked exactly once, here, and turned
// into a closed set of types. Pipeline code switches on the type instead of
// re-checking nested keys, and a malformed response is a value the caller
// can decide about (abort or skip) rather than a panic deep in a loop.
type Outcome interface {
	outcome()
}

// Matched is a well-formed response. Matches may be empty.
type Matched struct {
	Matches []model.Match
}

// Malformed is a response that did not have the expected shape.
type Malformed struct {
	Reason string
}

func (Matched) outcome()   {}
func (Malformed) outcome() {}

// Err returns the malformed outcome as an error wrapping ErrMalformedResponse.
func (m Malformed) Err() error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, m.Reason)
}

// noScore is printed for a match whose score is null.
const noScore = "None"

// errStopStream ends a stream once the final event has been seen.
var errStopStream = errors.New("stop stream")

// Lookup runs the workflow for one sentence in blocking mode and decodes
// the response. Transport, status, and JSON errors are returned as errors;
// a response of the wrong shape is returned as Malformed.
func (c *Client) Lookup(ctx context.Context, sentence string) (Outcome, error) {
	raw, err := c.Run(ctx, Inputs{InputKey: sentence})
	if err != nil {
		return nil, err
	}
	return DecodeOutcome(raw, false), nil
}

// LookupStream runs the workflow for one sentence in streaming mode and
// decodes the workflow_finished event.
//
// In lenient mode (the default) unparsable events are logged and skipped,
// and a stream that ends without a final event yields an empty Matched.
// With StrictStream such streams are Malformed, as is a stream that Stream
// rejects with ErrMalformedStream.
func (c *Client) LookupStream(ctx context.Context, sentence string) (Outcome, error) {
	var outcome Outcome

	err := c.Stream(ctx, Inputs{InputKey: sentence}, func(ev Event) error {
		if ev.IsError() {
			c.logger.Warn("skipping unparsable stream event",
				"error", ev.Err,
				"line", ev.RawLine,
			)
			return nil
		}
		if ev.Name != EventWorkflowFinished {
			return nil
		}
		outcome = DecodeOutcome(ev.Data, c.strict)
		return errStopStream
	})
	if errors.Is(err, ErrMalformedStream) {
		return Malformed{Reason: err.Error()}, nil
	}
	if err != nil && !errors.Is(err, errStopStream) {
		return nil, err
	}

	if outcome == nil {
		if c.strict {
			return Malformed{Reason: "stream ended without " + EventWorkflowFinished + " event"}, nil
		}
		return Matched{}, nil
	}
	return outcome, nil
}

// DecodeOutcome decodes a workflow response (or a workflow_finished event,
// which has the same shape) into an Outcome.
//
// The expected shape is data.outputs.result: a list of objects with
// "content" and "metadata.score". A missing outputs or result is an empty
// Matched unless requireOutputs is set, in which case missing outputs is
// Malformed.
func DecodeOutcome(body []byte, requireOutputs bool) Outcome {
	top, ok := decodeObject(body)
	if !ok {
		return Malformed{Reason: "response is not a JSON object"}
	}

	data, ok := decodeObject(top["data"])
	if !ok {
		return Malformed{Reason: "response has no data object"}
	}

	if status, ok := decodeString(data["status"]); ok && status == "failed" {
		msg, _ := decodeString(data["error"])
		return Malformed{Reason: "workflow failed: " + msg}
	}

	rawOutputs, present := data["outputs"]
	if !present {
		if requireOutputs {
			return Malformed{Reason: "data has no outputs"}
		}
		return Matched{}
	}
	outputs, ok := decodeObject(rawOutputs)
	if !ok {
		return Malformed{Reason: "data.outputs is not an object"}
	}

	result, present := outputs["result"]
	if !present || isNull(result) || isFalsy(result) {
		return Matched{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(result, &items); err != nil {
		return Malformed{Reason: "data.outputs.result is not a list"}
	}

	matches := make([]model.Match, 0, len(items))
	for i, raw := range items {
		m, reason := decodeMatch(raw)
		if reason != "" {
			return Malformed{Reason: fmt.Sprintf("data.outputs.result[%d]: %s", i, reason)}
		}
		matches = append(matches, m)
	}

	return Matched{Matches: matches}
}

// decodeMatch decodes one result item. A non-empty reason means malformed.
func decodeMatch(raw json.RawMessage) (model.Match, string) {
	item, ok := decodeObject(raw)
	if !ok {
		return model.Match{}, "item is not an object"
	}

	rawContent, ok := item["content"]
	if !ok {
		return model.Match{}, "missing content"
	}
	content, ok := decodeString(rawContent)
	if !ok {
		content = string(bytes.TrimSpace(rawContent))
	}

	metadata, ok := decodeObject(item["metadata"])
	if !ok {
		return model.Match{}, "missing metadata"
	}
	rawScore, ok := metadata["score"]
	if !ok {
		return model.Match{}, "missing metadata.score"
	}

	dec := json.NewDecoder(bytes.NewReader(rawScore))
	dec.UseNumber()
	var score any
	if err := dec.Decode(&score); err != nil {
		return model.Match{}, "invalid metadata.score"
	}

	// Keyword retrieval reports no score at all, so any scalar is kept and
	// printed as it came. Only a number sets Score.
	switch v := score.(type) {
	case json.Number:
		return model.NewMatch(content, v), ""
	case nil:
		return model.Match{Content: content, ScoreText: noScore}, ""
	case string:
		return model.Match{Content: content, ScoreText: v}, ""
	case bool:
		if v {
			return model.Match{Content: content, ScoreText: "True"}, ""
		}
		return model.Match{Content: content, ScoreText: "False"}, ""
	default:
		return model.Match{}, "metadata.score is not a scalar"
	}
}

// decodeObject decodes raw as a JSON object. null and non-objects fail.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isFalsy reports the JSON values that count as "no result": an empty list,
// an empty string, an empty object, false, and zero.
func isFalsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}
