package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Sanyam33/GSC-Verifier/internal/verification"
)

const (
	defaultSearchType = "web"
	defaultRowLimit   = 50
	maxBodyBytes      = 64 << 10
)

// Verifier is the workflow behind the GSC routes.
type Verifier interface {
	Initiate(ctx context.Context, siteURL string) (*verification.InitiateResult, error)
	Callback(ctx context.Context, params verification.CallbackParams) (*verification.CallbackResult, error)
	VerifyResult(ctx context.Context, siteURL string) (*verification.Result, error)
	Metrics(ctx context.Context, q verification.MetricsQuery) ([]byte, error)
}

type requestVerificationBody struct {
	SiteURL string `json:"site_url"`
}

type failedCallback struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// RequestVerificationHandler starts verification for a site and returns the
// Google consent URL.
func RequestVerificationHandler(svc Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestVerificationBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			detail := "Request body must be JSON with a site_url field"
			if errors.Is(err, io.EOF) {
				detail = "Request body is required"
			}
			writeDetail(w, http.StatusUnprocessableEntity, detail)
			return
		}

		res, err := svc.Initiate(r.Context(), body.SiteURL)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// CallbackHandler receives Google's OAuth redirect.
func CallbackHandler(svc Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, err := svc.Callback(r.Context(), verification.CallbackParams{
			Code:  q.Get("code"),
			State: q.Get("state"),
			Error: q.Get("error"),
		})
		if err != nil {
			writeError(w, r, err, "Invalid state")
			return
		}

		if res.Status == verification.StatusFailed {
			status := http.StatusOK
			if res.Cause != nil {
				status = errorStatus(res.Cause)
			}
			writeJSON(w, status, failedCallback{Status: res.Status, Reason: res.Reason})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// VerifyResultHandler reports the latest verification outcome for a site.
func VerifyResultHandler(svc Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.VerifyResult(r.Context(), r.URL.Query().Get("site_url"))
		if err != nil {
			writeError(w, r, err, "Verification record not found")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// MetricsHandler proxies a search analytics query for a verified site.
func MetricsHandler(svc Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseMetricsQuery(r)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		body, err := svc.Metrics(r.Context(), q)
		if err != nil {
			writeError(w, r, err, "Verified site not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// parseMetricsQuery reads the query string, applying defaults for dimensions,
// search_type and row_limit. Dimensions may be repeated as dimensions or
// dimensions[].
func parseMetricsQuery(r *http.Request) (verification.MetricsQuery, error) {
	values := r.URL.Query()
	q := verification.MetricsQuery{
		SiteURL:    values.Get("site_url"),
		StartDate:  values.Get("start_date"),
		EndDate:    values.Get("end_date"),
		SearchType: values.Get("search_type"),
		RowLimit:   defaultRowLimit,
	}

	q.Dimensions = append(q.Dimensions, values["dimensions"]...)
	q.Dimensions = append(q.Dimensions, values["dimensions[]"]...)
	if len(q.Dimensions) == 0 {
		q.Dimensions = []string{"query"}
	}
	if q.SearchType == "" {
		q.SearchType = defaultSearchType
	}
	if raw := values.Get("row_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("row_limit must be an integer")
		}
		q.RowLimit = n
	}
	return q, nil
}
