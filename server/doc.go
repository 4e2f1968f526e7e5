// Package server exposes butler over HTTP with a chi router.
//
// Routes:
//
//	GET  /healthz
//	POST /v1/classify        {"text": "..."}
//	POST /v1/recipes/search  {"query": "..."}
//	POST /v1/generate        {"prompt": "...", "attachments": [{"mime_type": "...", "data": "<base64>"}]}
//	POST /v1/ask             {"user_id": "...", "text": "...", "latitude": 0, "longitude": 0}
//	GET  /metrics
//
// Errors are returned as {"code": "...", "message": "..."}.
package server
