// Package utm extracts campaign attribution from landing URLs.
package utm

import (
	"encoding/json"
	"net/url"
)

// Attribution is the set of recognized campaign parameters. A nil field means the
// parameter was absent (or empty) on the entry URL.
type Attribution struct {
	Source   *string `json:"utm_source,omitempty"`
	Medium   *string `json:"utm_medium,omitempty"`
	Campaign *string `json:"utm_campaign,omitempty"`
	Term     *string `json:"utm_term,omitempty"`
	Content  *string `json:"utm_content,omitempty"`
}

// Parse extracts attribution from an absolute or relative URL.
func Parse(rawURL string) (Attribution, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Attribution{}, err
	}
	return FromValues(u.Query()), nil
}

// FromValues extracts attribution from already parsed query values.
func FromValues(q url.Values) Attribution {
	return Attribution{
		Source:   param(q, "utm_source"),
		Medium:   param(q, "utm_medium"),
		Campaign: param(q, "utm_campaign"),
		Term:     param(q, "utm_term"),
		Content:  param(q, "utm_content"),
	}
}

func param(q url.Values, key string) *string {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// Empty reports whether no parameter is present.
func (a Attribution) Empty() bool {
	return a.Source == nil && a.Medium == nil && a.Campaign == nil && a.Term == nil && a.Content == nil
}

// SourceOr returns the source, or fallback when absent.
func (a Attribution) SourceOr(fallback string) string {
	if a.Source == nil {
		return fallback
	}
	return *a.Source
}

// CampaignOr returns the campaign, or fallback when absent.
func (a Attribution) CampaignOr(fallback string) string {
	if a.Campaign == nil {
		return fallback
	}
	return *a.Campaign
}

// Encode serializes the attribution into the persisted record shape.
func (a Attribution) Encode() string {
	data, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Decode reads a persisted record. Malformed input yields an empty attribution.
func Decode(raw string) Attribution {
	var a Attribution
	if raw == "" {
		return a
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Attribution{}
	}
	// Normalize empty strings written by older clients to absent.
	for _, p := range []**string{&a.Source, &a.Medium, &a.Campaign, &a.Term, &a.Content} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
	return a
}
