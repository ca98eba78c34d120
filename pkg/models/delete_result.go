package models

// DeleteResult counts the rows removed per table by a cascading delete.
type DeleteResult struct {
	Rows map[string]int64 `json:"rows"`
}

func NewDeleteResult() *DeleteResult {
	return &DeleteResult{Rows: map[string]int64{}}
}

func (r *DeleteResult) Add(table string, n int64) {
	if n == 0 {
		return
	}
	r.Rows[table] += n
}

// Count returns the rows removed from table.
func (r *DeleteResult) Count(table string) int64 {
	return r.Rows[table]
}

func (r *DeleteResult) Total() int64 {
	var total int64
	for _, n := range r.Rows {
		total += n
	}
	return total
}
