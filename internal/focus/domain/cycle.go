package domain

// Reasons a cycle ended early.
const (
	SkipFetchFailed = "fetch_failed"
	SkipNotBlocking = "not_blocking"
	SkipTabsFailed  = "tabs_failed"
)

// CycleReport summarizes one Fetcher to Matcher to Enforcer pass.
type CycleReport struct {
	Skipped bool
	Reason  string // set when Skipped
	Tabs    int    // tabs evaluated
	Blocked int    // navigations issued
	Failed  int    // navigations that returned an error
}
