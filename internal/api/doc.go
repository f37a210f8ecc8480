// Package api provides CueMap's REST surface (§6): memory ingestion,
// recall, reinforcement, alias management, and stats, implemented as a
// thin Gin binding over internal/cuemap's per-tenant engines.
//
// Every route goes through CORS, optional API-key auth, rate limiting, and
// a body-size cap, in that order, before reaching a handler.
package api
