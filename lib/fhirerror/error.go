// Package fhirerror carries structured information about failed FHIR
// interactions and renders it as diagnostic text.
package fhirerror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// GenericErrorMessage is reported for OperationOutcome issues that carry
// neither a details text nor diagnostics.
const GenericErrorMessage = "An unexpected error occurred."

// ServerError describes a failed interaction with a FHIR server. Every field
// is optional and absence is expressed as the zero or nil value, so an empty
// header map is not the same as no headers at all.
type ServerError struct {
	// StatusCode is the HTTP status code of the response, or 0 when unknown.
	StatusCode int
	// MimeType is the media type of the response, without parameters.
	MimeType *string
	// Headers are the response headers.
	Headers http.Header
	// ResponseBody is the raw response body text.
	ResponseBody *string
	// AdditionalMessages carry extra diagnostic context, e.g. the request line.
	AdditionalMessages []string
	// Outcome is the OperationOutcome the server returned, if it returned one.
	Outcome *fhir.OperationOutcome
}

func (e *ServerError) Error() string {
	if e.Outcome == nil || len(e.Outcome.Issue) == 0 {
		return fmt.Sprintf("FHIR server error (status=%d)", e.StatusCode)
	}
	var messages []string
	for _, issue := range e.Outcome.Issue {
		messages = append(messages, fmt.Sprintf("[%v %v] %s", issue.Code, issue.Severity, MessageForIssue(issue)))
	}
	return fmt.Sprintf("FHIR server error (status=%d), issues: %s", e.StatusCode, strings.Join(messages, "; "))
}

// issueMessageSources are tried in order, the first one that yields a message wins.
var issueMessageSources = []func(issue fhir.OperationOutcomeIssue) *string{
	func(issue fhir.OperationOutcomeIssue) *string {
		if issue.Details == nil || issue.Details.Text == nil || *issue.Details.Text == "" {
			return nil
		}
		return issue.Details.Text
	},
	func(issue fhir.OperationOutcomeIssue) *string {
		if issue.Diagnostics == nil || *issue.Diagnostics == "" {
			return nil
		}
		return issue.Diagnostics
	},
}

// MessageForIssue returns a human-readable message for the issue: the details
// text if it has one, otherwise the diagnostics, otherwise GenericErrorMessage.
func MessageForIssue(issue fhir.OperationOutcomeIssue) string {
	for _, source := range issueMessageSources {
		if message := source(issue); message != nil {
			return *message
		}
	}
	return GenericErrorMessage
}

// Describe renders one diagnostic line per ServerError field category, in a
// fixed order, with an explicit notice for every absent field. It is meant for
// logging and never fails, not even on a zero ServerError.
func Describe(serverError *ServerError) []string {
	var lines []string
	if serverError.StatusCode != 0 {
		lines = append(lines, fmt.Sprintf("HTTP status code of the response: %d", serverError.StatusCode))
	} else {
		lines = append(lines, "The response did not have an HTTP status code.")
	}
	if serverError.MimeType != nil {
		lines = append(lines, fmt.Sprintf("Mime type of the response: %s", *serverError.MimeType))
	} else {
		lines = append(lines, "The response did not have a mime type.")
	}
	if serverError.Headers != nil {
		lines = append(lines, "Headers of the response:")
		// Sorted for deterministic output, Go maps have no order.
		names := make([]string, 0, len(serverError.Headers))
		for name := range serverError.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, value := range serverError.Headers[name] {
				lines = append(lines, fmt.Sprintf("Header: %q   Value: %q", name, value))
			}
		}
	} else {
		lines = append(lines, "The response did not have any headers.")
	}
	if serverError.ResponseBody != nil {
		lines = append(lines, fmt.Sprintf("Body of the response: %s", *serverError.ResponseBody))
	} else {
		lines = append(lines, "The response did not have a body.")
	}
	if len(serverError.AdditionalMessages) > 0 {
		lines = append(lines, "Additional messages:")
		lines = append(lines, serverError.AdditionalMessages...)
	} else {
		lines = append(lines, "There were no additional messages.")
	}
	if serverError.Outcome != nil {
		lines = append(lines, "Error messages from the operation outcome issues:")
		for _, issue := range serverError.Outcome.Issue {
			lines = append(lines, MessageForIssue(issue))
		}
	} else {
		lines = append(lines, "The response did not include an OperationOutcome.")
	}
	return lines
}

type outcomeResource struct {
	fhir.OperationOutcome
	ResourceType *string `json:"resourceType"`
}

func (r outcomeResource) isOperationOutcome() bool {
	return r.ResourceType != nil && strings.EqualFold(*r.ResourceType, "OperationOutcome")
}

// OutcomeFromResponse parses an OperationOutcome from a response body.
// It returns nil if the body is not an OperationOutcome resource.
func OutcomeFromResponse(body []byte) *fhir.OperationOutcome {
	var resource outcomeResource
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil
	}
	if !resource.isOperationOutcome() {
		return nil
	}
	return &resource.OperationOutcome
}
