package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 50
	MaxSize     = 500
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// New clamps page and size into range.
func New(page, size int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// FromContext reads ?page= and ?size= from the request.
func FromContext(c *gin.Context) Query {
	return New(parseIntOr(c.Query("page"), DefaultPage), parseIntOr(c.Query("size"), DefaultSize))
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Size
}

// Meta builds the pagination block for a result set of total rows.
func (q Query) Meta(total int64) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

// Paginate counts the query, then loads one page of it into dest.
// Both finishers run on their own copy of the statement.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	db = db.Session(&gorm.Session{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return q.Meta(total), nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
