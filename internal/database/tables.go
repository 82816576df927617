package database

import "context"

type GetTableParams struct {
	ID       int64
	BranchID int64
}

const getTable = `SELECT id, branch_id, code, name FROM tables WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTable, arg.ID, arg.BranchID).
		Scan(&t.ID, &t.BranchID, &t.Code, &t.Name)
	return t, err
}

const getTableByCode = `SELECT id, branch_id, code, name FROM tables WHERE code = $1`

// GetTableByCode resolves the opaque code embedded in a table's QR code.
func (q *Queries) GetTableByCode(ctx context.Context, code string) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTableByCode, code).
		Scan(&t.ID, &t.BranchID, &t.Code, &t.Name)
	return t, err
}

const listTables = `SELECT id, branch_id, code, name FROM tables WHERE branch_id = $1 ORDER BY name`

func (q *Queries) ListTables(ctx context.Context, branchID int64) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.BranchID, &t.Code, &t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type GetDeliveryPartnerParams struct {
	ID       int64
	BranchID int64
}

const getDeliveryPartner = `SELECT id, branch_id, name FROM delivery_partners WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetDeliveryPartner(ctx context.Context, arg GetDeliveryPartnerParams) (DeliveryPartner, error) {
	var dp DeliveryPartner
	err := q.db.QueryRow(ctx, getDeliveryPartner, arg.ID, arg.BranchID).
		Scan(&dp.ID, &dp.BranchID, &dp.Name)
	return dp, err
}
