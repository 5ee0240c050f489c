// Package main hosts the election guide service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, address lookup, race, candidate, story, news,
//     map and session endpoints under /v1. Requests carry a request id and are logged with zap.
//   - Lookup: internal/lookup geocodes an address through Mapbox, queries the Assembly, Senate and
//     congressional tilesets in parallel and joins the districts to race rows read from Google Sheets.
//     A lookup.completed event is published for every successful lookup.
//   - Upstreams: internal/upstream wraps net/http with per-service rate limits, retries and backoff.
//     Sheet and news responses are cached in an expirable LRU.
//   - News: the Colly probe fetcher reads the newsroom tag page; when the heuristic detector finds no
//     articles the page is re-rendered with Chromedp. goquery extracts the headlines.
//   - Sessions: saved races and the source race live in an in-memory LRU or a Postgres table, keyed by
//     a cookie holding a UUIDv7 session id.
//   - Snapshots: the snapshot command writes candidates, races, stories and news as JSON to the
//     memory, local or GCS blob store, followed by a manifest with SHA-256 digests.
//
// Operational notes:
//   - Configuration: Viper reads an optional YAML file plus ELECTIONS_* environment variables.
//     MAPBOX_ACCESS_TOKEN, GOOGLE_SHEETS_API_KEY and PORT are honoured as aliases.
//   - Cloud Run: the server listens on PORT and drains in-flight requests on SIGTERM.
//
// Usage:
//
//	electionguide serve --config config.yaml
//	electionguide lookup "2 E Main St, Madison, WI"
//	electionguide snapshot
package main
