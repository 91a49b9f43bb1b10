package engine

// Kind tags a RouteError with the wire-level category spec.md §6/§7
// defines, so callers across a process boundary can dispatch on it without
// parsing Msg.
type Kind int

const (
	// ProfileUnsupported is returned when a requested profile name is not
	// in the engine's registry.
	ProfileUnsupported Kind = iota
	// ResolveFailed is returned when no acceptable edge lies within the
	// resolver's search radius.
	ResolveFailed
	// RouteNotFound is returned when a search kernel exhausts its frontier
	// without reaching the target.
	RouteNotFound
	// Cancelled is returned when a query's context is cancelled or times
	// out mid-search.
	Cancelled
)

// RouteError is the engine's structured failure type: a Kind tag plus the
// wire-level message spec.md §6 specifies verbatim.
type RouteError struct {
	Kind Kind
	Msg  string
}

func (e *RouteError) Error() string { return e.Msg }

const (
	msgProfileUnsupportedMulti  = "Not all routing profiles are supported."
	msgProfileUnsupportedSingle = "Routing profile is not supported."
)

func profileUnsupportedErr(multi bool) *RouteError {
	msg := msgProfileUnsupportedSingle
	if multi {
		msg = msgProfileUnsupportedMulti
	}
	return &RouteError{Kind: ProfileUnsupported, Msg: msg}
}

func resolveFailedErr(cause error) *RouteError {
	return &RouteError{Kind: ResolveFailed, Msg: cause.Error()}
}

func routeNotFoundErr(cause error) *RouteError {
	return &RouteError{Kind: RouteNotFound, Msg: cause.Error()}
}

func cancelledErr(cause error) *RouteError {
	return &RouteError{Kind: Cancelled, Msg: cause.Error()}
}
