// Package model holds the row-level types flowing through the resolution
// pipeline.
package model

import (
	"strconv"

	"github.com/xl-idp/reference-inn/internal/ident"
)

// Row is the unit of work: one free-text company mention plus everything the
// pipeline learns about it. A Row is created at ingestion, mutated in place
// through the pipeline, and ends either written to the batch output or
// force-written after a failed retry.
type Row struct {
	CompanyName        string             `json:"company_name"`
	CompanyNameRus     string             `json:"company_name_rus"`
	SearchQuery        string             `json:"request_to_yandex"`
	CompanyINN         string             `json:"company_inn"`
	CompanyINNCount    int                `json:"company_inn_count"`
	SumCountINN        int                `json:"sum_count_inn"`
	CompanyINNMaxRank  int                `json:"company_inn_max_rank"`
	CountINNInFTS      int                `json:"count_inn_in_fts"`
	IsFTSFound         bool               `json:"is_fts_found"`
	FTSCompanyName     string             `json:"fts_company_name"`
	IsINNFoundAuto     bool               `json:"is_inn_found_auto"`
	IsNameFromCache    bool               `json:"is_company_name_from_cache"`
	CompanyNameUnified string             `json:"company_name_unified"`
	Country            ident.Jurisdiction `json:"country"`
	ConfidenceRate     int                `json:"confidence_rate"`
	HasConfidence      bool               `json:"-"`
	OriginalFileName   string             `json:"original_file_name"`
	OriginalFileParsed string             `json:"original_file_parsed_on"`
}

// CSVHeader lists the output columns in their fixed emission order.
func CSVHeader() []string {
	return []string{
		"company_name",
		"company_name_rus",
		"request_to_yandex",
		"company_inn",
		"company_inn_count",
		"sum_count_inn",
		"company_inn_max_rank",
		"count_inn_in_fts",
		"is_fts_found",
		"fts_company_name",
		"is_inn_found_auto",
		"is_company_name_from_cache",
		"company_name_unified",
		"country",
		"confidence_rate",
		"original_file_name",
		"original_file_parsed_on",
	}
}

// CSVRecord renders the row in CSVHeader order. An unset confidence rate is
// emitted as an empty field so the warehouse sees NULL, not zero.
func (r *Row) CSVRecord() []string {
	confidence := ""
	if r.HasConfidence {
		confidence = strconv.Itoa(r.ConfidenceRate)
	}
	return []string{
		r.CompanyName,
		r.CompanyNameRus,
		r.SearchQuery,
		r.CompanyINN,
		strconv.Itoa(r.CompanyINNCount),
		strconv.Itoa(r.SumCountINN),
		strconv.Itoa(r.CompanyINNMaxRank),
		strconv.Itoa(r.CountINNInFTS),
		strconv.FormatBool(r.IsFTSFound),
		r.FTSCompanyName,
		strconv.FormatBool(r.IsINNFoundAuto),
		strconv.FormatBool(r.IsNameFromCache),
		r.CompanyNameUnified,
		string(r.Country),
		confidence,
		r.OriginalFileName,
		r.OriginalFileParsed,
	}
}

// Clone returns an independent copy used when one input row fans out over
// several candidate identifiers.
func (r *Row) Clone() *Row {
	dup := *r
	return &dup
}

// Bucket classifies the row for the per-country JSON exports.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketRussian
	BucketForeign
)

// BucketFor maps the resolved country onto an export bucket. No country
// means unknown; Russia is separated; everything else is foreign.
func BucketFor(country ident.Jurisdiction) Bucket {
	switch country {
	case "":
		return BucketUnknown
	case ident.Russia:
		return BucketRussian
	default:
		return BucketForeign
	}
}

// Resolution is one registry answer for a (taxpayer id, jurisdiction) pair.
type Resolution struct {
	Name      string
	Country   ident.Jurisdiction
	FromCache bool
}
