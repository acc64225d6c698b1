package xmlriver

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/xl-idp/reference-inn/internal/resilience"
)

type searchResponse struct {
	Response struct {
		Error *searchError `xml:"error"`
		Docs  []searchDoc  `xml:"results>grouping>group>doc"`
	} `xml:"response"`
}

type searchError struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

type searchDoc struct {
	Title    rawText   `xml:"title"`
	Passages []rawText `xml:"passages>passage"`
}

// rawText captures element content with the highlight markup still inside.
type rawText struct {
	Inner string `xml:",innerxml"`
}

// hlTags matches the highlight markup Yandex injects into titles and
// passages.
var hlTags = regexp.MustCompile(`<[^>]+>`)

func flatten(s string) string {
	return strings.TrimSpace(hlTags.ReplaceAllString(s, ""))
}

func parseSearchResponse(r io.Reader) ([]Doc, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var parsed searchResponse
	if err := dec.Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "xmlriver: decode search response")
	}

	if e := parsed.Response.Error; e != nil {
		switch e.Code {
		case codeNoFunds:
			return nil, resilience.NewFatalError("search balance exhausted", eris.Errorf("xmlriver: %s", e.Text))
		case codeNoResults:
			return nil, nil
		case codeNoChannels:
			return nil, resilience.NewTransientError(eris.Errorf("xmlriver: no free channels: %s", e.Text), 0)
		default:
			return nil, resilience.NewTransientError(eris.Errorf("xmlriver: error code %s: %s", e.Code, e.Text), 0)
		}
	}

	docs := make([]Doc, 0, len(parsed.Response.Docs))
	for _, d := range parsed.Response.Docs {
		doc := Doc{Title: flatten(d.Title.Inner)}
		parts := make([]string, 0, len(d.Passages))
		for _, p := range d.Passages {
			parts = append(parts, p.Inner)
		}
		doc.Passage = flatten(strings.Join(parts, " "))
		docs = append(docs, doc)
	}
	return docs, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "xmlriver: unknown charset %s", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}
