// Package httpapi exposes the agent event feed over HTTP.
//
// Routes:
//
//	GET  /                      status banner
//	POST /upload_clip           ingest one event (alias: POST /events)
//	POST /fork/{id}             increment the fork count of an event
//	GET  /leaderboard           the most forked events
//	GET  /agent/{agentID}/logs  recent events of one agent, newest first
//	GET  /events/recent?limit=  recent events, oldest first
//	GET  /stream                history then live events as NDJSON
//
// Every method except GET, HEAD and OPTIONS requires the X-Agent-Auth header.
package httpapi
