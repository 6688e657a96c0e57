package kenall

import (
	"fmt"
	"strings"
)

// Result is the outcome of a successful [Client.Lookup] call:
// either [Found] or [NotFound]. Provider failures are not results,
// they are reported as an [UpstreamError].
type Result interface {
	isResult()
}

// Found contains the provider's matches, in the provider's order.
// Zero records is legal, and is not the same as [NotFound].
type Found struct {
	Records []Address
}

// NotFound means the provider responded with HTTP 404.
type NotFound struct{}

func (Found) isResult()    {}
func (NotFound) isResult() {}

// Address is a single postal area record, based on
// https://kenall.jp/docs/API/postalcode/. Displayed fields are pointers,
// because the provider may omit them, send null, or send empty strings.
type Address struct {
	JISX0402   string `json:"jisx0402,omitempty"`
	OldCode    string `json:"old_code,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	PrefectureKana string `json:"prefecture_kana,omitempty"`
	CityKana       string `json:"city_kana,omitempty"`
	TownKana       string `json:"town_kana,omitempty"`

	Prefecture *string `json:"prefecture,omitempty"`
	City       *string `json:"city,omitempty"`
	Town       *string `json:"town,omitempty"`
	Koaza      *string `json:"koaza,omitempty"`
	Building   *string `json:"building,omitempty"`
	Floor      *string `json:"floor,omitempty"`

	KyotoStreet  string `json:"kyoto_street,omitempty"`
	UpdateStatus int    `json:"update_status,omitempty"`
	UpdateReason int    `json:"update_reason,omitempty"`

	Corporation *Corporation `json:"corporation,omitempty"`
}

// Corporation describes an individual postal code assigned
// to a large-volume recipient or to a PO box.
type Corporation struct {
	Name       *string  `json:"name,omitempty"`
	NameKana   string   `json:"name_kana,omitempty"`
	BlockLot   *string  `json:"block_lot,omitempty"`
	PostOffice *string  `json:"post_office,omitempty"`
	CodeType   CodeType `json:"code_type"`
}

// CodeType is the kind of an individual postal code.
type CodeType int

const (
	LargeOffice CodeType = iota
	POBox
)

func (t CodeType) String() string {
	switch t {
	case LargeOffice:
		return "large office"
	case POBox:
		return "PO box"
	default:
		return fmt.Sprintf("code type %d", int(t))
	}
}

// Present reports whether an optional field was provided with a non-blank value.
func Present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// lookupResponse is the JSON body of a successful lookup.
type lookupResponse struct {
	Version string    `json:"version"`
	Data    []Address `json:"data"`
}
