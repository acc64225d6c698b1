// Package registry resolves validated taxpayer identifiers to canonical
// company names through the national registries: dadata for Russia,
// pk.uchet.kz for Kazakhstan, portal.nalog.gov.by for Belarus and
// orginfo.uz for Uzbekistan.
package registry

import (
	"context"
	"net/http"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/proxy"
)

// Lookup is one national registry client. CompanyName returns the canonical
// name for a checksum-valid identifier, or an empty string when the registry
// has no record of it.
type Lookup interface {
	Jurisdiction() ident.Jurisdiction
	CompanyName(ctx context.Context, taxpayerID string) (string, error)
}

// httpSource hands out clients for outbound requests. The proxy pool
// implements it; tests substitute a fixed client.
type httpSource interface {
	Client() *http.Client
}

var _ httpSource = (*proxy.Pool)(nil)

type fixedClient struct{ c *http.Client }

func (f fixedClient) Client() *http.Client { return f.c }
