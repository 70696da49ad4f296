package crud

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	"github.com/google/uuid"
)

// Record is a row of a resource plus any associations loaded with it
type Record struct {
	ops       *Operations
	attrs     map[string]interface{}
	included  map[string]interface{}
	persisted bool
}

// Get returns a field value
func (r *Record) Get(field string) interface{} {
	return r.attrs[field]
}

// Attributes returns a copy of the record's field values
func (r *Record) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Included returns the association loaded under alias
func (r *Record) Included(alias string) (interface{}, bool) {
	v, ok := r.included[alias]
	return v, ok
}

// Persisted reports whether the record exists in the database
func (r *Record) Persisted() bool {
	return r.persisted
}

// MarshalJSON encodes the fields and loaded associations as one object
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.attrs)+len(r.included))
	for k, v := range r.attrs {
		out[k] = v
	}
	for k, v := range r.included {
		out[k] = v
	}
	return json.Marshal(out)
}

// Save inserts a built record, or writes every non-key field of a persisted one
func (r *Record) Save(ctx context.Context) error {
	if r.persisted {
		changes := make(map[string]interface{}, len(r.attrs))
		for k, v := range r.attrs {
			if !isKey(r.ops.primaryKeys(), k) {
				changes[k] = v
			}
		}
		return r.update(ctx, changes)
	}

	values := make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		values[k] = v
	}
	r.ops.populateAutoFields(values, true)

	inserted, err := r.ops.insertRecord(ctx, values)
	if err != nil {
		return r.ops.fail("create", err)
	}

	r.attrs = inserted
	r.persisted = true
	return nil
}

// UpdateAttributes merges the known fields of attrs into the record and persists them
func (r *Record) UpdateAttributes(ctx context.Context, attrs map[string]interface{}) error {
	changes := r.ops.knownFields(attrs)
	if !r.persisted {
		for k, v := range changes {
			r.attrs[k] = v
		}
		return r.Save(ctx)
	}
	return r.update(ctx, changes)
}

func (r *Record) update(ctx context.Context, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	r.ops.populateAutoFields(changes, false)

	updated, err := r.ops.updateRecord(ctx, r.keyValues(), changes)
	if err != nil {
		return r.ops.fail("update", err)
	}

	r.attrs = updated
	return nil
}

// Destroy deletes the record
func (r *Record) Destroy(ctx context.Context) error {
	if !r.persisted {
		return r.ops.fail("delete", ErrNotFound)
	}
	if err := r.ops.deleteRecord(ctx, r.keyValues()); err != nil {
		return r.ops.fail("delete", err)
	}
	r.persisted = false
	return nil
}

func (r *Record) keyValues() map[string]interface{} {
	keys := make(map[string]interface{})
	for _, pk := range r.ops.primaryKeys() {
		keys[pk] = r.attrs[pk]
	}
	return keys
}

// insertRecord inserts a record into the database and returns the stored row
func (o *Operations) insertRecord(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	pb := o.dialect.NewParamBuilder()

	var columns, placeholders []string
	for _, field := range o.resource.OrderedFields() {
		if value, ok := data[field.Name]; ok {
			columns = append(columns, o.dialect.QuoteIdentifier(field.Name))
			placeholders = append(placeholders, pb.Add(value))
		}
	}

	var sql string
	if len(columns) == 0 {
		sql = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", o.builder.Table(), o.builder.SelectList())
	} else {
		sql = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			o.builder.Table(),
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
			o.builder.SelectList(),
		)
	}

	row := o.db.QueryRowContext(ctx, sql, pb.Params()...)
	return query.ScanRow(row, o.builder.Columns())
}

// updateRecord writes changes to the row identified by keys and returns the stored row
func (o *Operations) updateRecord(ctx context.Context, keys, changes map[string]interface{}) (map[string]interface{}, error) {
	pb := o.dialect.NewParamBuilder()

	var sets []string
	for _, field := range o.resource.OrderedFields() {
		if value, ok := changes[field.Name]; ok {
			sets = append(sets, fmt.Sprintf("%s = %s", o.dialect.QuoteIdentifier(field.Name), pb.Add(value)))
		}
	}
	if len(sets) == 0 {
		return nil, ErrNoFields
	}

	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s RETURNING %s",
		o.builder.Table(),
		strings.Join(sets, ", "),
		o.keyClause(keys, pb),
		o.builder.SelectList(),
	)

	row := o.db.QueryRowContext(ctx, sql, pb.Params()...)
	return query.ScanRow(row, o.builder.Columns())
}

// deleteRecord removes the row identified by keys
func (o *Operations) deleteRecord(ctx context.Context, keys map[string]interface{}) error {
	pb := o.dialect.NewParamBuilder()
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", o.builder.Table(), o.keyClause(keys, pb))

	result, err := o.db.ExecContext(ctx, sql, pb.Params()...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (o *Operations) keyClause(keys map[string]interface{}, pb *query.ParamBuilder) string {
	parts := make([]string, 0, len(keys))
	for _, pk := range o.primaryKeys() {
		parts = append(parts, fmt.Sprintf("%s = %s", o.dialect.QuoteIdentifier(pk), pb.Add(keys[pk])))
	}
	return strings.Join(parts, " AND ")
}

// populateAutoFields fills auto primary keys and auto timestamps. On create every auto
// timestamp is set when absent; on update only updated_at is refreshed.
func (o *Operations) populateAutoFields(record map[string]interface{}, create bool) {
	now := time.Now().UTC()

	for _, field := range o.resource.OrderedFields() {
		if !field.HasAnnotation("auto") || field.Type == nil {
			continue
		}
		_, present := record[field.Name]

		switch field.Type.BaseType {
		case schema.TypeUUID:
			if create && !present {
				record[field.Name] = uuid.NewString()
			}
		case schema.TypeTimestamp:
			if create && !present {
				record[field.Name] = now
			} else if !create && field.Name == "updated_at" {
				record[field.Name] = now
			}
		}
	}
}

func isKey(keys []string, field string) bool {
	for _, k := range keys {
		if k == field {
			return true
		}
	}
	return false
}
