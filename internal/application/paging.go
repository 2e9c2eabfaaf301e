package application

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

func validatePage(page, limit int) error {
	if page < 1 || limit < 1 || limit > MaxLimit {
		return ErrInvalidPagination
	}
	return nil
}

func offset(page, limit int) int {
	return (page - 1) * limit
}
