package domain

// FetchResult is the outcome of one status fetch. A failed fetch means "no
// update": the cycle ends without touching any tab.
type FetchResult struct {
	Status StatusDocument
	Err    error
}

// OK reports whether the fetch produced a usable status document.
func (r FetchResult) OK() bool { return r.Err == nil }

// Fetched wraps a successfully decoded document.
func Fetched(doc StatusDocument) FetchResult { return FetchResult{Status: doc} }

// FetchFailed wraps err as a failed fetch.
func FetchFailed(err error) FetchResult { return FetchResult{Err: err} }
