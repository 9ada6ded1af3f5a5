// Package pagination implements page-number pagination over bun queries and
// renders the {data, links, meta} envelope.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/uptrace/bun"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

type Params struct {
	Page    int
	PerPage int
}

// FromRequest reads page and per_page, falling back to defaults for missing
// or invalid values.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{Page: 1, PerPage: DefaultPerPage}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = v
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Apply limits q to the requested page.
func (p Params) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(p.PerPage).Offset(p.Offset())
}

type Links struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type Meta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	LastPage    int    `json:"last_page"`
	Path        string `json:"path"`
	PerPage     int    `json:"per_page"`
	To          *int   `json:"to"`
	Total       int    `json:"total"`
}

type Page struct {
	Data  interface{} `json:"data"`
	Links Links       `json:"links"`
	Meta  Meta        `json:"meta"`
}

// New builds the envelope for a page holding count items out of total.
func New(r *http.Request, p Params, total, count int, data interface{}) Page {
	lastPage := 1
	if total > 0 {
		lastPage = (total + p.PerPage - 1) / p.PerPage
	}

	path := basePath(r)
	page := Page{
		Data: data,
		Links: Links{
			First: pageURL(r, path, 1),
			Last:  pageURL(r, path, lastPage),
		},
		Meta: Meta{
			CurrentPage: p.Page,
			LastPage:    lastPage,
			Path:        path,
			PerPage:     p.PerPage,
			Total:       total,
		},
	}
	if count > 0 {
		from := p.Offset() + 1
		to := p.Offset() + count
		page.Meta.From = &from
		page.Meta.To = &to
	}
	if p.Page > 1 {
		prev := pageURL(r, path, p.Page-1)
		page.Links.Prev = &prev
	}
	if p.Page < lastPage {
		next := pageURL(r, path, p.Page+1)
		page.Links.Next = &next
	}
	return page
}

func basePath(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	if r.Host == "" {
		return r.URL.Path
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// pageURL keeps every other query parameter, so include survives paging.
func pageURL(r *http.Request, path string, page int) string {
	q := url.Values{}
	for k, v := range r.URL.Query() {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}
