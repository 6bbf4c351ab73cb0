package utils

import "strconv"

// PageSize is the fixed number of posts per listing page.
const PageSize = 10

// Page describes one fixed-size slice of an ordered listing.
type Page struct {
	Number     int   `json:"number"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ParsePageNumber interprets the "page" query parameter. Anything that is not
// a positive integer means page 1.
func ParsePageNumber(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 1
}

// NewPage builds page metadata for the requested page number, clamping it
// into the valid range. An empty listing still has one (empty) page.
func NewPage(number int, totalItems int64) Page {
	totalPages := int((totalItems + PageSize - 1) / PageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}
	return Page{
		Number:     number,
		Size:       PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Offset returns the query offset for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) HasPrev() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.TotalPages }

func (p Page) PrevNumber() int { return p.Number - 1 }

func (p Page) NextNumber() int { return p.Number + 1 }
