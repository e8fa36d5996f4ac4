package common

import "strconv"

// PaginatesPer is the page size used by every paginated listing.
const PaginatesPer = 10

type Pagination struct {
	Current int
	Total   int
	Next    int
	Prev    int
	Offset  int
	Limit   int
}

// Paginate computes paging state for a 1-based page parameter.
//
// Total is count/PaginatesPer + 1, which reports one extra (empty) page
// whenever count is an exact multiple of the page size. That matches the
// long-standing behavior of the listings and is pinned by tests; changing
// it is a product decision, not a cleanup.
func Paginate(pageParam string, count int) Pagination {
	page, err := strconv.Atoi(pageParam)
	if err != nil || page <= 0 {
		page = 1
	}
	return Pagination{
		Current: page,
		Total:   count/PaginatesPer + 1,
		Next:    page + 1,
		Prev:    page - 1,
		Offset:  (page - 1) * PaginatesPer,
		Limit:   PaginatesPer,
	}
}
