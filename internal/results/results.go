// Package results carries the success/failure outcome of a service operation.
//
// A failure is a business outcome the caller must look at (user unknown, soft
// platform failure); the error returned next to it is reserved for
// infrastructure problems.
package results

// OperationResult holds exactly one of Success or Failure when populated.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult wraps a success payload.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps a failure payload.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }
