package model

// Outcome describes what the downloader did with one catalog row.
type Outcome string

const (
	OutcomeDownloaded    Outcome = "downloaded"
	OutcomeSkippedNoURL  Outcome = "skipped-no-url"
	OutcomeSkippedKind   Outcome = "skipped-wrong-kind"
	OutcomeSkippedExists Outcome = "skipped-already-exists"
	OutcomeFailed        Outcome = "failed"
)

// Failure is one download failure-log row. It carries enough of the source
// row to retry by hand.
type Failure struct {
	DocReference string `json:"doc_reference"`
	DocName      string `json:"doc_name"`
	URL          string `json:"url"`
	Error        string `json:"error"`
	LPACurie     string `json:"lpa_curie"`
	LPAName      string `json:"lpa_name"`
	LocalPlan    string `json:"local_plan"`
}

// CrawlFailure records a registry entry skipped during a crawl.
type CrawlFailure struct {
	Reference          string
	Name               string
	OrganisationEntity string
	DocumentURL        string
	Error              string
}
