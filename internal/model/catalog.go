// Package model contains the record types shared by the crawl and download
// stages.
package model

import (
	"fmt"
	"strings"
)

// FileKind is the coarse category assigned to a URL after live classification.
type FileKind string

const (
	KindPDF     FileKind = "pdf"
	KindImage   FileKind = "image"
	KindHTML    FileKind = "html"
	KindDoc     FileKind = "doc"
	KindLanding FileKind = "landing"
	KindUnknown FileKind = "unknown"
)

var kinds = []FileKind{KindPDF, KindImage, KindHTML, KindDoc, KindLanding, KindUnknown}

// ParseFileKind maps a catalog token to a FileKind. An empty token is unknown.
func ParseFileKind(s string) (FileKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindUnknown, nil
	}
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown file kind %q", s)
}

// ParseFileKinds parses an allow-list of kind tokens.
func ParseFileKinds(raw []string) ([]FileKind, error) {
	var out []FileKind
	for _, s := range raw {
		k, err := ParseFileKind(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// LandingOnly reports whether the kind means "not a direct file".
func (k FileKind) LandingOnly() bool {
	return k == KindLanding || k == KindHTML || k == KindUnknown
}

// Organization is the publishing planning authority of a document.
type Organization struct {
	Curie string
	Name  string
}

// IsZero reports whether no organisation was resolved.
func (o Organization) IsZero() bool {
	return o.Curie == "" && o.Name == ""
}

// Classification is the resolved state of a candidate document URL.
type Classification struct {
	URL         string
	ContentType string
	Status      int
	Kind        FileKind
}

// Key identifies a catalog record for deduplication.
type Key struct {
	Curie       string
	LocalPlan   string
	DeclaredURL string
}

// CatalogRecord is one deduplicated, classified catalog row.
type CatalogRecord struct {
	LPACurie     string   `json:"lpa_curie"`
	LPAName      string   `json:"lpa_name"`
	DocReference string   `json:"doc_reference"`
	DocName      string   `json:"doc_name"`
	DocTypes     []string `json:"doc_types,omitempty"`
	FileKind     FileKind `json:"file_kind"`
	FinalURL     string   `json:"final_url"`
	LandingURL   string   `json:"landing_url"`
	Status       int      `json:"status"`
	ContentType  string   `json:"content_type"`
	EntryDate    string   `json:"entry_date"`
	LocalPlan    string   `json:"local_plan"`

	// DeclaredURL is the registry's document-url. It is part of the dedup key
	// but not of the catalog file.
	DeclaredURL string `json:"declared_url,omitempty"`
}

// Key returns the dedup key of the record.
func (r CatalogRecord) Key() Key {
	return Key{Curie: r.LPACurie, LocalPlan: r.LocalPlan, DeclaredURL: r.DeclaredURL}
}

// SourceURL prefers the resolved file URL and falls back to the landing page.
func (r CatalogRecord) SourceURL() string {
	if u := strings.TrimSpace(r.FinalURL); u != "" {
		return u
	}
	return strings.TrimSpace(r.LandingURL)
}
