package response

// APIResponse is the success envelope returned by every endpoint.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope. Detail is only populated in development.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Success    bool   `json:"success"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalIssues"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	Limit       int   `json:"limit"`
}

// PagedData is the data payload of list endpoints.
type PagedData struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func Success(status int, data any, message string) APIResponse {
	return APIResponse{StatusCode: status, Data: data, Message: message, Success: status < 400}
}

// NewPagination computes paging metadata. totalPages is ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
		Limit:       limit,
	}
}
