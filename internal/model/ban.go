package model

import (
	"net/url"
	"strings"
)

// BanRecord is one row of the community ban list.
// It is immutable once read.
type BanRecord struct {
	// Username is the banned account name without the "u/" prefix.
	Username string `json:"username"`

	// RawReason is the moderator-entered reason exactly as displayed.
	RawReason string `json:"raw_reason"`
}

// NewBanRecord builds a BanRecord from a scraped row.
// The "u/" prefix shown in the ban list is stripped from the username.
func NewBanRecord(username, rawReason string) (BanRecord, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "u/")
	if username == "" {
		return BanRecord{}, ErrEmptyUsername
	}
	return BanRecord{
		Username:  username,
		RawReason: strings.TrimSpace(rawReason),
	}, nil
}

// CleanReason collapses every run of whitespace, newlines included, into a
// single space and trims the result.
func (b BanRecord) CleanReason() string {
	return strings.Join(strings.Fields(b.RawReason), " ")
}

// ProfileURL returns the public profile URL of the banned user on baseURL.
func (b BanRecord) ProfileURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/user/" + url.PathEscape(b.Username)
}
