package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so the orchestrator can translate them into batch
// outcomes without inspecting message strings.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: identifier does not exist in the store it was asked of
// - ErrUnauthorized: credentials rejected by the remote registry
// - ErrNetwork: connection to the remote registry could not be established
// - ErrTimeout: the remote call ran past its deadline
// - ErrUnavailable: store temporarily unreachable (local database down)
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNetwork      = errors.New("network unreachable")
	ErrTimeout      = errors.New("timeout")
	ErrUnavailable  = errors.New("unavailable")
)
