package catalog

import (
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

// FailureColumns is the column order of the download failure log.
var FailureColumns = []string{
	"doc_reference",
	"doc_name",
	"url",
	"error",
	"lpa_curie",
	"lpa_name",
	"local_plan",
}

// CrawlFailureColumns is the column order of the crawl skip log.
var CrawlFailureColumns = []string{
	"reference",
	"name",
	"organisation_entity",
	"document_url",
	"error",
}

// WriteFailures stores the download failure log atomically.
func WriteFailures(path string, failures []model.Failure) error {
	if len(failures) == 0 {
		return ErrEmpty
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.DocReference, f.DocName, f.URL, f.Error, f.LPACurie, f.LPAName, f.LocalPlan})
	}
	return writeAtomic(path, FailureColumns, rows)
}

// WriteCrawlFailures stores the entries skipped by a crawl.
func WriteCrawlFailures(path string, failures []model.CrawlFailure) error {
	if len(failures) == 0 {
		return ErrEmpty
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Reference, f.Name, f.OrganisationEntity, f.DocumentURL, f.Error})
	}
	return writeAtomic(path, CrawlFailureColumns, rows)
}
