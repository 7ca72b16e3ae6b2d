package utils

const (
	pageSizeDefault = 20
	pageSizeMax     = 100
)

// GetPaginationParams clamps optional offset/limit query values into a safe
// window for list queries. Nil or negative offsets start at zero; nil or
// non-positive limits fall back to the default page size, capped at the
// maximum.
func GetPaginationParams(offset, limit *int) (int, int) {
	finalOffset := 0
	if offset != nil && *offset > 0 {
		finalOffset = *offset
	}

	finalLimit := pageSizeDefault
	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}

	return finalOffset, finalLimit
}
