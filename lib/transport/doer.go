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

// Package transport provides composable HTTP request doers that sit between
// the FHIR client and the actual HTTP client: extra request headers, HTTP
// Basic authentication, request/response logging and capturing of failed
// responses as structured errors.
package transport

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/rs/zerolog/log"

	"github.com/zorgdemo/fhirsearch/lib/fhirerror"
	"github.com/zorgdemo/fhirsearch/lib/to"
)

// maxErrorBodySize bounds how much of a failed response's body is kept for diagnostics.
const maxErrorBodySize = 1024 * 1024

// WithHeaders returns a doer that adds the given header values to every
// request. Values the request already carries are not duplicated.
func WithHeaders(next fhirclient.HttpRequestDoer, header http.Header) fhirclient.HttpRequestDoer {
	return &headerDoer{next: next, header: header}
}

type headerDoer struct {
	next   fhirclient.HttpRequestDoer
	header http.Header
}

func (d headerDoer) Do(req *http.Request) (*http.Response, error) {
	for name, values := range d.header {
		for _, value := range values {
			addHeaderValueIfNotPresent(&req.Header, name, value)
		}
	}
	return d.next.Do(req)
}

// WithBasicAuth returns a doer that sets an HTTP Basic Authorization header on
// every request, unless the request already carries one.
func WithBasicAuth(next fhirclient.HttpRequestDoer, username, password string) fhirclient.HttpRequestDoer {
	return &basicAuthDoer{next: next, username: username, password: password}
}

type basicAuthDoer struct {
	next     fhirclient.HttpRequestDoer
	username string
	password string
}

func (d basicAuthDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		req.SetBasicAuth(d.username, d.password)
	}
	return d.next.Do(req)
}

// RequestLogger is a doer that logs a summary of every request and response.
// It logs at INFO level, so only wire it up when that's really wanted.
type RequestLogger struct {
	Next fhirclient.HttpRequestDoer
	// LogRequestHeaders also logs every request header. Depending on the
	// authentication scheme this leaks credentials into the log.
	LogRequestHeaders bool
}

func (d RequestLogger) Do(req *http.Request) (*http.Response, error) {
	logger := log.Ctx(req.Context())
	logger.Info().Msgf("Client request: %s %s", req.Method, req.URL)
	if d.LogRequestHeaders {
		for name, values := range req.Header {
			for _, value := range values {
				logger.Info().Msgf("Client request header: %s: %s", name, value)
			}
		}
	}
	response, err := d.Next.Do(req)
	if err != nil {
		logger.Info().Msgf("Client request failed: %v", err)
		return response, err
	}
	logger.Info().Msgf("Client response: %s", response.Status)
	return response, nil
}

// CaptureServerError returns a doer that converts every non-2xx response into
// a *fhirerror.ServerError carrying the response's status, headers, body and,
// when the server returned one, its OperationOutcome. The FHIR client wraps
// errors from its doer, so callers recover the ServerError with errors.As.
func CaptureServerError(next fhirclient.HttpRequestDoer) fhirclient.HttpRequestDoer {
	return &errorCapturingDoer{next: next}
}

type errorCapturingDoer struct {
	next fhirclient.HttpRequestDoer
}

func (d errorCapturingDoer) Do(req *http.Request) (*http.Response, error) {
	response, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return response, nil
	}
	defer response.Body.Close()
	serverError := &fhirerror.ServerError{
		StatusCode:         response.StatusCode,
		Headers:            response.Header,
		AdditionalMessages: []string{fmt.Sprintf("request: %s %s", req.Method, req.URL)},
	}
	if contentType := response.Header.Get("Content-Type"); contentType != "" {
		if mimeType, _, err := mime.ParseMediaType(contentType); err == nil {
			serverError.MimeType = to.Ptr(mimeType)
		}
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
	if err == nil && len(body) > 0 {
		serverError.ResponseBody = to.Ptr(string(body))
		serverError.Outcome = fhirerror.OutcomeFromResponse(body)
	}
	return nil, serverError
}

func addHeaderValueIfNotPresent(header *http.Header, name, value string) {
	for _, existing := range header.Values(name) {
		if existing == value {
			return
		}
	}
	header.Add(name, value)
}
