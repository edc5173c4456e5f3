package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RegistryEntry is one raw item of the local-plan-document dataset.
type RegistryEntry struct {
	Reference          FlexString `json:"reference"`
	Name               FlexString `json:"name"`
	OrganisationEntity FlexString `json:"organisation-entity"`
	DocumentURL        FlexString `json:"document-url"`
	DocumentationURL   FlexString `json:"documentation-url"`
	DocumentTypes      TagList    `json:"document-types"`
	EntryDate          FlexString `json:"entry-date"`
	LocalPlan          FlexString `json:"local-plan"`
}

// FlexString decodes JSON strings, numbers and null into a trimmed string.
// The registry is not consistent about entity ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// TagList decodes either a ";"-delimited string or an array of strings.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = nil
	case data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = items
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = nil
			return nil
		}
		*t = []string{s}
	}
	return nil
}
