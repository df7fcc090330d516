package model

import (
    "math"
    "strconv"
    "strings"
)

// AllValues is the sentinel a client may send to mean "no filter".
const AllValues = "ALL"

// SalonFilter is the filter/pagination tuple of the salon directory listing.
// Refresh is a control flag and never part of the cache key.
type SalonFilter struct {
    Page     int
    Limit    int
    Search   string
    Status   string
    Plan     string
    Country  string
    Province string
    City     string
    Refresh  bool
}

// Normalize returns the canonical form of f: limit clamped to [1, maxLimit]
// (defaultLimit when unset), page clamped so the offset fits in an int32, strings trimmed, status/plan
// upper-cased, free-text fields lower-cased and "ALL" folded to "".  Two
// filters that select the same rows normalize to the same value.
func (f SalonFilter) Normalize(defaultLimit, maxLimit int) SalonFilter {
    out := SalonFilter{
        Page:     f.Page,
        Limit:    f.Limit,
        Search:   strings.ToLower(strings.TrimSpace(f.Search)),
        Status:   foldAll(strings.ToUpper(strings.TrimSpace(f.Status))),
        Plan:     foldAll(strings.ToUpper(strings.TrimSpace(f.Plan))),
        Country:  foldAll(strings.ToLower(strings.TrimSpace(f.Country))),
        Province: foldAll(strings.ToLower(strings.TrimSpace(f.Province))),
        City:     foldAll(strings.ToLower(strings.TrimSpace(f.City))),
        Refresh:  f.Refresh,
    }
    if out.Page < 1 {
        out.Page = 1
    }
    if out.Limit < 1 {
        out.Limit = defaultLimit
    }
    if out.Limit > maxLimit {
        out.Limit = maxLimit
    }
    if out.Limit > 0 && out.Page > math.MaxInt32/out.Limit {
        out.Page = math.MaxInt32 / out.Limit
    }
    return out
}

// Offset is the number of rows skipped for the current page.
func (f SalonFilter) Offset() int { return (f.Page - 1) * f.Limit }

// Fields returns every key-relevant field by name.
func (f SalonFilter) Fields() map[string]string {
    return map[string]string{
        "page":     strconv.Itoa(f.Page),
        "limit":    strconv.Itoa(f.Limit),
        "search":   f.Search,
        "status":   f.Status,
        "plan":     f.Plan,
        "country":  f.Country,
        "province": f.Province,
        "city":     f.City,
    }
}

func foldAll(s string) string {
    if strings.EqualFold(s, AllValues) {
        return ""
    }
    return s
}

// PageMeta describes the page returned by a listing.
type PageMeta struct {
    Total    int64 `json:"total"`
    Page     int   `json:"page"`
    Limit    int   `json:"limit"`
    LastPage int   `json:"lastPage"`
}

// SalonPage is the listing response cached by the directory cache.
type SalonPage struct {
    Data []Salon  `json:"data"`
    Meta PageMeta `json:"meta"`
}

// NewSalonPage assembles a page and computes lastPage = ceil(total/limit).
func NewSalonPage(data []Salon, total int64, f SalonFilter) SalonPage {
    if data == nil {
        data = []Salon{}
    }
    last := 0
    if f.Limit > 0 {
        last = int((total + int64(f.Limit) - 1) / int64(f.Limit))
    }
    return SalonPage{Data: data, Meta: PageMeta{Total: total, Page: f.Page, Limit: f.Limit, LastPage: last}}
}
