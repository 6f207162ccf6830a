package repository

import "errors"

// StaleClaimReason is recorded for every platform of a post whose sweep died
// between claim and terminal write.
const StaleClaimReason = "publishing interrupted before completion"

var (
	ErrPostNotClaimed = errors.New("post is not claimed for publishing")
	ErrTokenChanged   = errors.New("access token changed since it was read")
)
