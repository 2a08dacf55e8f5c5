package firestore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// notFoundError builds a not-found error that classifies correctly through
// the platform error wrapper, for lookups that miss without a Firestore
// status (e.g. empty query results).
func notFoundError(what string) error {
	return status.Errorf(codes.NotFound, "%s not found", what)
}
