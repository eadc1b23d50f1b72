// Package server exposes the duplicate checker over HTTP.
//
// Routes:
//
//	POST /api/v1/duplicate-check        upload a document, check it sequentially
//	POST /api/v1/duplicate-check-async  upload a document, check it with parallel lookups
//	GET  /api/v1/download-result/*      download a generated report
//	GET  /healthz                       liveness probe
//	GET  /metrics                       Prometheus metrics
//
// Uploads are stored in a temporary file that keeps the original extension,
// because the document reader picks the format from it. The temporary
// input is always removed once the run finishes.
package server
