// Package workflow is a client for the remote content-similarity workflow
// (the Dify "run workflow" API).
//
// A workflow run is a POST to {base_url}/v1/workflows/run with a bearer
// token and a JSON body of the form:
//
//	{"inputs": {"content": "..."}, "response_mode": "blocking", "user": "..."}
//
// The client supports both response modes:
//   - Blocking: a single JSON document (Run)
//   - Streaming: a Server-Sent-Events body, one JSON event per "data: " line (Stream)
//
// On top of the raw calls, Lookup and LookupStream decode the response once
// into an Outcome, either Matched (zero or more matches) or Malformed (the
// response did not have the data.outputs.result shape). Callers never have
// to walk the response themselves.
//
// # Usage
//
//	client, err := workflow.NewClient(workflow.Config{
//	    BaseURL: "https://api.dify.ai",
//	    APIKey:  os.Getenv("DIFY_API_KEY"),
//	    User:    "dupcheck",
//	})
//	if err != nil {
//	    return err
//	}
//	outcome, err := client.Lookup(ctx, "今天天气很好")
package workflow
