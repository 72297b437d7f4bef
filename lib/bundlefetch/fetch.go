/*
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package bundlefetch collects all pages of a FHIR search result into a single
// aggregate Bundle by following the search set's "next" links.
package bundlefetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/zorgdemo/fhirsearch/lib/to"
)

// ErrMissingStartBundle is returned by FetchAll when no starting bundle is given.
var ErrMissingStartBundle = errors.New("bundlefetch: starting bundle is required")

// SearchClient is the part of the FHIR client that is needed to resolve a
// search set's "next" link into the following page.
type SearchClient interface {
	SearchWithContext(ctx context.Context, resourceType string, query url.Values, target any, opts ...fhirclient.Option) error
}

// NextPageFunc returns the page following current, typically by performing one
// HTTP GET against the current page's "next" link.
type NextPageFunc func(ctx context.Context, current *fhir.Bundle) (*fhir.Bundle, error)

// Result is the outcome of aggregating all pages of a search.
type Result struct {
	// Bundle contains the entries of all pages, in page order. Its total is
	// the total declared by the first page. Navigation links are stripped,
	// since they aren't meaningful on an aggregate.
	Bundle fhir.Bundle
	// Pages is the number of pages that contributed to the aggregate.
	Pages int
	// CountMismatch is set when the total declared by the server differs from
	// the number of aggregated entries. The result is still usable.
	CountMismatch bool
}

// FetchAll iterates through all of the 'next' links starting at firstPage and
// aggregates the entries of every page into one bundle, in order.
// Any error from fetchNext aborts the aggregation and is returned as-is; there
// is no retry and no partial result.
// There is no bound on the number of pages by default: the loop only ends when
// a page has no "next" link. Callers that don't trust the server to ever omit
// the link can pass WithMaxPages.
func FetchAll(ctx context.Context, firstPage *fhir.Bundle, fetchNext NextPageFunc, opts ...Option) (*Result, error) {
	if firstPage == nil {
		return nil, ErrMissingStartBundle
	}
	options := &fetchOptions{}
	for _, opt := range opts {
		opt(options)
	}

	aggregate := *firstPage
	aggregate.Entry = append([]fhir.BundleEntry{}, firstPage.Entry...)
	log.Ctx(ctx).Debug().Msgf("Starting bundle search matched %d total resource(s), %d resource(s) are in this bundle.",
		to.Value(firstPage.Total), len(firstPage.Entry))

	current := firstPage
	pages := 1
	for hasNextLink(current) {
		if options.maxPages > 0 && pages >= options.maxPages {
			return nil, fmt.Errorf("bundlefetch: max. page count reached (%d), but the server offers more pages", options.maxPages)
		}
		next, err := fetchNext(ctx, current)
		if err != nil {
			return nil, err
		}
		log.Ctx(ctx).Debug().Msgf("Got the next bundle, which has %d resource(s) in it.", len(next.Entry))
		aggregate.Entry = append(aggregate.Entry, next.Entry...)
		current = next
		pages++
	}

	result := &Result{Bundle: aggregate, Pages: pages}
	// Just a check to see if counts are off.
	if firstPage.Total != nil && *firstPage.Total != len(aggregate.Entry) {
		log.Ctx(ctx).Error().Msgf("Counts didn't match! Expected %d resource(s) but the aggregate bundle has %d resource(s).",
			*firstPage.Total, len(aggregate.Entry))
		result.CountMismatch = true
	}
	result.Bundle.Link = nil
	return result, nil
}

// ClientPager binds a NextPageFunc to a FHIR client: the returned function
// resolves the current page's "next" link and fetches the page behind it.
func ClientPager(client SearchClient) NextPageFunc {
	return func(ctx context.Context, current *fhir.Bundle) (*fhir.Bundle, error) {
		var nextURL *url.URL
		for _, link := range current.Link {
			if link.Relation == "next" {
				var err error
				if nextURL, err = url.Parse(link.Url); err != nil {
					return nil, fmt.Errorf("bundlefetch: invalid 'next' link for search set: %w", err)
				}
			}
		}
		if nextURL == nil {
			return nil, errors.New("bundlefetch: search set has no 'next' link")
		}
		var next fhir.Bundle
		if err := client.SearchWithContext(ctx, "", nil, &next, fhirclient.AtUrl(nextURL)); err != nil {
			return nil, fmt.Errorf("bundlefetch: query next page failed (url=%s): %w", nextURL, err)
		}
		return &next, nil
	}
}

func hasNextLink(bundle *fhir.Bundle) bool {
	for _, link := range bundle.Link {
		if link.Relation == "next" {
			return true
		}
	}
	return false
}

type Option func(*fetchOptions)

type fetchOptions struct {
	maxPages int
}

// WithMaxPages bounds the number of pages FetchAll is willing to fetch.
// Zero (the default) means no bound.
func WithMaxPages(max int) Option {
	return func(o *fetchOptions) {
		o.maxPages = max
	}
}
