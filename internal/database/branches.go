package database

import "context"

const getBranch = `SELECT id, name, timezone, created_at FROM branches WHERE id = $1`

func (q *Queries) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, getBranch, id).
		Scan(&b.ID, &b.Name, &b.Timezone, &b.CreatedAt)
	return b, err
}
