package crud

import (
	"context"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	"github.com/conduit-lang/dataservice/internal/orm/query"
	"golang.org/x/sync/errgroup"
)

// FindAll returns every record matching q, with includes attached
func (o *Operations) FindAll(ctx context.Context, q *query.Query) ([]model.Instance, error) {
	if q == nil {
		q = &query.Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, o.fail("find", err)
	}

	records, err := o.findAll(ctx, q)
	if err != nil {
		return nil, o.fail("find", err)
	}
	return records, nil
}

// FindAndCountAll returns a page of records and the number of records matching the filter.
// The count and page queries run concurrently.
func (o *Operations) FindAndCountAll(ctx context.Context, q *query.Query) (*model.CountResult, error) {
	if q == nil {
		q = &query.Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, o.fail("count", err)
	}

	var (
		count   int64
		records []model.Instance
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sql, args, err := o.builder.Count(q)
		if err != nil {
			return err
		}
		if err := o.db.QueryRowContext(gctx, sql, args...).Scan(&count); err != nil {
			return fmt.Errorf("failed to execute count query: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		records, err = o.findAll(gctx, q)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, o.fail("count", err)
	}

	return &model.CountResult{Count: count, Rows: records}, nil
}

// Find returns the first record matching q, or nil when nothing matches
func (o *Operations) Find(ctx context.Context, q *query.Query) (model.Instance, error) {
	if q == nil {
		q = &query.Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, o.fail("find", err)
	}

	one := 1
	limited := *q
	limited.Limit = &one

	records, err := o.findAll(ctx, &limited)
	if err != nil {
		return nil, o.fail("find", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FindByID returns the record whose lookup key equals id, or nil when there is none
func (o *Operations) FindByID(ctx context.Context, id string) (model.Instance, error) {
	value, ok := o.resource.CoerceKey(id)
	if !ok {
		return nil, nil
	}
	return o.Find(ctx, &query.Query{Where: map[string]interface{}{o.resource.LookupKey(): value}})
}

// findAll runs the row query and loads includes. Pagination and includes are both honored
// here so single-row lookups can carry includes.
func (o *Operations) findAll(ctx context.Context, q *query.Query) ([]model.Instance, error) {
	sql, args, err := o.builder.Select(q)
	if err != nil {
		return nil, err
	}

	results, err := o.queryRows(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	var included []map[string]interface{}
	if len(q.Includes) > 0 && len(results) > 0 {
		if o.loader == nil {
			return nil, fmt.Errorf("includes requested but no relationship loader configured")
		}
		included, err = o.loader.EagerLoad(ctx, results, o.resource, q.Includes)
		if err != nil {
			return nil, err
		}
	}

	records := make([]model.Instance, len(results))
	for i, attrs := range results {
		var inc map[string]interface{}
		if included != nil {
			inc = included[i]
		}
		records[i] = o.newRecord(attrs, inc, true)
	}
	return records, nil
}

// queryRows runs a row query and closes the result set before returning
func (o *Operations) queryRows(ctx context.Context, sql string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := o.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	results, err := query.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return results, nil
}
