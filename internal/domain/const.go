package domain

type ctxKey string

const (
	// RequesterAddrCtxKey holds the authenticated wallet address of the caller.
	RequesterAddrCtxKey ctxKey = "mf-requesterAddr"
)

const (
	// EventChannel is the redis pub/sub channel for access events.
	EventChannel = "mediflow:events"
)
