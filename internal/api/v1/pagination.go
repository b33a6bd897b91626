package v1

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// page is the list envelope every collection endpoint returns.
type page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// pageParams reads limit/offset from the query string. A missing or
// non-positive limit falls back to the configured default page size;
// a negative offset is treated as zero.
func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 0)
	if limit <= 0 {
		limit = PageSize
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// newPage assembles the envelope, computing absolute next/previous links
// that preserve the request's other query parameters.
func newPage(c *fiber.Ctx, count int64, limit, offset int, results interface{}) page {
	p := page{Count: count, Results: results}
	if int64(offset+limit) < count {
		p.Next = pageLink(c, limit, offset+limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		p.Previous = pageLink(c, limit, prev)
	}
	return p
}

func pageLink(c *fiber.Ctx, limit, offset int) *string {
	q := url.Values{}
	for k, v := range c.Queries() {
		q.Set(k, v)
	}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	link := c.BaseURL() + c.Path() + "?" + q.Encode()
	return &link
}
