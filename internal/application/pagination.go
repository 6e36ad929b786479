package application

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage はページ番号（0始まり）とページサイズを補正する
func NormalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// pageBounds はページ指定を LIMIT / OFFSET に変換する
func pageBounds(page, size int) (limit, offset int) {
	page, size = NormalizePage(page, size)
	return size, page * size
}
