package repository

import "go.mongodb.org/mongo-driver/mongo/options"

const (
	MaxPageLimit = 100
	// MaxPageNumber keeps Skip well inside int64 and Mongo's skip range.
	MaxPageNumber = 100000
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps page to 1..MaxPageNumber and limit to 1..MaxPageLimit, using
// defaultLimit when limit is not positive.
func NewPage(number, limit, defaultLimit int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Skip() int64 {
	return int64(p.Number-1) * int64(p.Limit)
}

// Pages is the number of pages needed for total items.
func (p Page) Pages(total int64) int64 {
	if p.Limit <= 0 || total == 0 {
		return 0
	}
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}

func (p Page) findOptions() *options.FindOptions {
	opts := options.Find()
	if p.Limit > 0 {
		opts.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
	}
	return opts
}
