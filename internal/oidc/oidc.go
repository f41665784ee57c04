// Package oidc discovers an issuer's JWKS location from its OpenID
// Connect provider metadata.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// maxMetadataSize bounds the discovery document read from the network.
const maxMetadataSize = 1 << 20

// WellKnownEndpoints is the subset of the provider metadata this module uses.
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// GetWellKnownEndpointsFromIssuerURL fetches
// <issuerURL>/.well-known/openid-configuration with client.
//
// When the document names an issuer it must equal expectedIssuer, ignoring
// a trailing slash; otherwise a compromised or misconfigured discovery
// endpoint could point validation at someone else's keys.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
	expectedIssuer string,
) (*WellKnownEndpoints, error) {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch well-known endpoints from %s: %w", issuerURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("well-known endpoint %s returned status %d", issuerURL.String(), resp.StatusCode)
	}

	var wkEndpoints WellKnownEndpoints
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxMetadataSize)).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if wkEndpoints.JWKSURI == "" {
		return nil, fmt.Errorf("well-known endpoints from %s have no jwks_uri", issuerURL.String())
	}

	if wkEndpoints.Issuer != "" && !sameIssuer(wkEndpoints.Issuer, expectedIssuer) {
		return nil, fmt.Errorf("issuer mismatch: metadata has %q, expected %q", wkEndpoints.Issuer, expectedIssuer)
	}

	return &wkEndpoints, nil
}

func sameIssuer(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
