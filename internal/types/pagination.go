package types

// PageParams are the normalized list-query parameters. Zero values are
// replaced by defaults in Normalize.
type PageParams struct {
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p PageParams) Offset() int { return (p.Page - 1) * p.PerPage }

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// List is the envelope every paginated endpoint returns.
type List struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

func NewList(items interface{}, params PageParams, total int64) List {
	pages := 0
	if params.PerPage > 0 {
		pages = int((total + int64(params.PerPage) - 1) / int64(params.PerPage))
	}
	return List{
		Items: items,
		Pagination: Pagination{
			Page:       params.Page,
			PerPage:    params.PerPage,
			Total:      total,
			TotalPages: pages,
		},
	}
}
