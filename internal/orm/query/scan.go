package query

import (
	"database/sql"
)

// ScanRows reads every remaining row as a column -> value record.
// Byte slices become strings so records encode as readable JSON.
func ScanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := []map[string]interface{}{}
	for rows.Next() {
		record, err := scanRecord(rows.Scan, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ScanRow reads a single row whose columns are known up front
func ScanRow(row *sql.Row, columns []string) (map[string]interface{}, error) {
	return scanRecord(row.Scan, columns)
}

func scanRecord(scan func(dest ...interface{}) error, columns []string) (map[string]interface{}, error) {
	cells := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(columns))
	for i, column := range columns {
		if b, ok := cells[i].([]byte); ok {
			record[column] = string(b)
			continue
		}
		record[column] = cells[i]
	}
	return record, nil
}
