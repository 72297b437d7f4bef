package cmd

import (
	"context"
	"net/http"
	"net/url"
	"os"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/zorgdemo/fhirsearch/lib/bundlefetch"
	"github.com/zorgdemo/fhirsearch/lib/fhirerror"
	"github.com/zorgdemo/fhirsearch/lib/fhirutil"
	"github.com/zorgdemo/fhirsearch/lib/to"
	"github.com/zorgdemo/fhirsearch/lib/transport"
)

// Start runs one Patient search against the configured FHIR server, fetches
// all pages of the result and logs the patients that matched. A failure of the
// search or of any page fetch aborts the whole run; the server's diagnostics
// are logged before the error is returned.
func Start(ctx context.Context, config Config) error {
	logger, err := newLogger(config.Log)
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx)

	baseURL, err := url.Parse(config.FHIR.BaseURL)
	if err != nil {
		return errors.Wrap(err, "invalid FHIR base URL")
	}
	client := fhirclient.New(baseURL, newDoer(config), clientConfig())

	params := searchParams(config.Search)
	logger.Debug().Msgf("Searching patients (url=%s, params=%s)", baseURL, params.Encode())
	var firstPage fhir.Bundle
	if err := client.SearchWithContext(ctx, "Patient", params, &firstPage); err != nil {
		logServerError(ctx, err)
		return errors.Wrap(err, "patient search failed")
	}

	result, err := bundlefetch.FetchAll(ctx, &firstPage, bundlefetch.ClientPager(client))
	if err != nil {
		logServerError(ctx, err)
		return errors.Wrap(err, "fetching all search result pages failed")
	}
	logger.Info().Msgf("In the end the search matched %d patient(s) and %d patient(s) are in this aggregate bundle.",
		to.Value(result.Bundle.Total), len(result.Bundle.Entry))
	err = fhirutil.VisitBundleResources(&result.Bundle, func(patient *fhir.Patient) error {
		logger.Info().Msgf("ID of found patient is %s", to.EmptyString(patient.Id))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "reading patients from the aggregate bundle failed")
	}
	return nil
}

func newLogger(config LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.Logger{}, errors.Wrapf(err, "invalid log level: %s", config.Level)
	}
	return log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level), nil
}

// newDoer assembles the HTTP client the FHIR client sends its requests
// through: extra headers and basic auth when configured, optional request
// logging, and capturing of failed responses as structured errors.
func newDoer(config Config) fhirclient.HttpRequestDoer {
	var doer fhirclient.HttpRequestDoer = http.DefaultClient
	if len(config.FHIR.Headers) > 0 {
		header := http.Header{}
		for name, value := range config.FHIR.Headers {
			header.Set(name, value)
		}
		doer = transport.WithHeaders(doer, header)
	}
	if config.FHIR.Username != "" {
		doer = transport.WithBasicAuth(doer, config.FHIR.Username, config.FHIR.Password)
	}
	if config.Log.HTTPRequests {
		doer = transport.RequestLogger{Next: doer}
	}
	return transport.CaptureServerError(doer)
}

func clientConfig() *fhirclient.Config {
	config := fhirclient.DefaultConfig()
	config.DefaultOptions = []fhirclient.Option{
		fhirclient.RequestHeaders(map[string][]string{
			"Cache-Control": {"no-cache"},
		}),
	}
	return &config
}

func searchParams(search SearchConfig) url.Values {
	params := url.Values{}
	add := func(name, value string) {
		if value != "" {
			params.Add(name, value)
		}
	}
	add("_id", search.ID)
	add("identifier", search.Identifier)
	add("family", search.Family)
	add("given", search.Given)
	add("birthdate", search.BirthDate)
	add("gender", search.Gender)
	return params
}

// logServerError logs the structured diagnostics of a failed FHIR interaction,
// if the error carries any.
func logServerError(ctx context.Context, err error) {
	var serverError *fhirerror.ServerError
	if !errors.As(err, &serverError) {
		return
	}
	logger := log.Ctx(ctx)
	for _, line := range fhirerror.Describe(serverError) {
		logger.Error().Msg(line)
	}
}
