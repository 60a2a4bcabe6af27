package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ListingID is the opaque identifier of a class slot. The remote service
// sends it either as a JSON number or a JSON string; both decode to the
// same textual form used by the ignore list.
type ListingID string

func (id *ListingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ListingID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("listing id: %w", err)
	}
	*id = ListingID(n.String())
	return nil
}

func (id ListingID) String() string { return string(id) }

// ClassListing is one slot from a single catalog fetch.
type ClassListing struct {
	ID     ListingID `json:"id"`
	Topic  string    `json:"topic"`
	Booked bool      `json:"booked"`
}

// Category is a named catalog filter, e.g. workshop or masterclass.
type Category struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Campaign string `yaml:"campaign"`
}
