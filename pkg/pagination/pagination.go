package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Params holds pagination parameters parsed from the query string.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns page 1 with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromRequestStrict parses page and per_page from the request, rejecting
// invalid values instead of falling back to defaults.
func FromRequestStrict(r *http.Request) (Params, error) {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		v, err := strconv.Atoi(page)
		if err != nil || v < 1 {
			return Params{}, errors.New("page must be a valid positive integer")
		}
		p.Page = v
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		v, err := strconv.Atoi(perPage)
		if err != nil || v < 1 || v > maxPerPage {
			return Params{}, fmt.Errorf("per_page must be a valid integer between 1 and %d", maxPerPage)
		}
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p, nil
}

// FromRequest parses page and per_page from the request, clamping per_page
// to the maximum and ignoring invalid values.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= maxPerPage {
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}
