package utils

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Pagination 订单历史等列表接口的分页查询参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageResult 分页响应（list + total + 回显页参数）
type PageResult struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// GetPageOffset 归一化页参数并换算偏移量。
// 页码从 1 起，单页上限 50 条，防止全量拉取订单历史。
func (p *Pagination) GetPageOffset() (offset, limit int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return (p.Page - 1) * p.Limit, p.Limit
}
