package pagination

import (
	"net/http/httptest"
	"testing"
)

func TestParseParams(t *testing.T) {
	testCases := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 20},
		{name: "explicit", query: "?page=3&limit=5", wantPage: 3, wantLimit: 5},
		{name: "limit capped", query: "?limit=500", wantPage: 1, wantLimit: MaxLimit},
		{name: "garbage", query: "?page=abc&limit=-4", wantPage: 1, wantLimit: 20},
		{name: "zero page", query: "?page=0", wantPage: 1, wantLimit: 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/preauth/submissions"+tc.query, nil)
			p := ParseParams(req)
			if p.Page != tc.wantPage || p.Limit != tc.wantLimit {
				t.Errorf("Expected page=%d limit=%d, got %+v", tc.wantPage, tc.wantLimit, p)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	testCases := []struct {
		name      string
		params    Params
		total     int
		wantStart int
		wantEnd   int
	}{
		{name: "first page", params: Params{Page: 1, Limit: 10}, total: 25, wantStart: 0, wantEnd: 10},
		{name: "partial last page", params: Params{Page: 3, Limit: 10}, total: 25, wantStart: 20, wantEnd: 25},
		{name: "past the end", params: Params{Page: 5, Limit: 10}, total: 25, wantStart: 25, wantEnd: 25},
		{name: "empty", params: Params{Page: 1, Limit: 10}, total: 0, wantStart: 0, wantEnd: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := tc.params.Window(tc.total)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("Expected [%d,%d), got [%d,%d)", tc.wantStart, tc.wantEnd, start, end)
			}
		})
	}
}

func TestCalculateMeta(t *testing.T) {
	p := Params{Page: 2, Limit: 10}

	meta := p.CalculateMeta(25)

	if meta.TotalPages != 3 || !meta.HasNext || !meta.HasPrevious {
		t.Errorf("Unexpected meta %+v", meta)
	}

	empty := Params{Page: 1, Limit: 10}
	if m := empty.CalculateMeta(0); m.TotalPages != 1 || m.HasNext {
		t.Errorf("Expected a single empty page, got %+v", m)
	}
}
