package autoapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/web/middleware"
	webquery "github.com/conduit-lang/dataservice/internal/web/query"
	"github.com/conduit-lang/dataservice/internal/web/response"
	"go.uber.org/zap"
)

// CountHeader carries the total number of matching rows on paginated searches
const CountHeader = "X-Count"

func (d *Dispatcher) index(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, d.registry.Names())
}

func (d *Dispatcher) list(w http.ResponseWriter, r *http.Request, m model.Model) {
	includes, ok := d.includes(w, r, m)
	if !ok {
		return
	}

	records, err := m.FindAll(r.Context(), listQuery(includes))
	if err != nil {
		d.fail(w, r, m, "list", err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(records))
}

func (d *Dispatcher) create(w http.ResponseWriter, r *http.Request, m model.Model) {
	attrs, err := requireObject(r)
	if err != nil {
		d.badBody(w, err)
		return
	}

	instance := m.Build(attrs)
	if err := instance.Save(r.Context()); err != nil {
		d.fail(w, r, m, "create", err)
		return
	}
	response.JSON(w, http.StatusCreated, instance)
}

func (d *Dispatcher) search(w http.ResponseWriter, r *http.Request, m model.Model) {
	where, err := decodeObject(r)
	if err != nil {
		d.badBody(w, err)
		return
	}

	includes, ok := d.includes(w, r, m)
	if !ok {
		return
	}

	q, err := searchQuery(r, where, includes)
	switch {
	case errors.Is(err, webquery.ErrInvalidPagination):
		response.NewHTTPError(http.StatusBadRequest, err.Error()).WithCode("invalid_pagination").Render(w)
		return
	case errors.Is(err, ormquery.ErrPaginationWithIncludes):
		response.NewHTTPError(http.StatusBadRequest, err.Error()).WithCode("pagination_with_includes").Render(w)
		return
	case err != nil:
		response.RenderBadRequest(w, err.Error())
		return
	}

	if !q.Paginated() {
		records, err := m.FindAll(r.Context(), q)
		if err != nil {
			d.fail(w, r, m, "search", err)
			return
		}
		response.JSON(w, http.StatusOK, nonNil(records))
		return
	}

	result, err := m.FindAndCountAll(r.Context(), q)
	if err != nil {
		d.fail(w, r, m, "search", err)
		return
	}
	w.Header().Set(CountHeader, strconv.FormatInt(result.Count, 10))
	response.JSON(w, http.StatusOK, nonNil(result.Rows))
}

func (d *Dispatcher) retrieve(w http.ResponseWriter, r *http.Request, m model.Model, id string) {
	includes, ok := d.includes(w, r, m)
	if !ok {
		return
	}

	var (
		instance model.Instance
		err      error
	)
	if len(includes) > 0 {
		q, ok := lookupQuery(m.Schema(), id, includes)
		if !ok {
			response.Empty(w, http.StatusNotFound)
			return
		}
		instance, err = m.Find(r.Context(), q)
	} else {
		instance, err = m.FindByID(r.Context(), id)
	}
	if err != nil {
		d.fail(w, r, m, "retrieve", err)
		return
	}
	if instance == nil {
		response.Empty(w, http.StatusNotFound)
		return
	}
	response.JSON(w, http.StatusOK, instance)
}

func (d *Dispatcher) update(w http.ResponseWriter, r *http.Request, m model.Model, id string) {
	attrs, err := requireObject(r)
	if err != nil {
		d.badBody(w, err)
		return
	}

	instance, err := m.FindByID(r.Context(), id)
	if err != nil {
		d.fail(w, r, m, "update", err)
		return
	}
	if instance == nil {
		response.Empty(w, http.StatusNotFound)
		return
	}

	if err := instance.UpdateAttributes(r.Context(), attrs); err != nil {
		d.fail(w, r, m, "update", err)
		return
	}
	response.JSON(w, http.StatusOK, instance)
}

func (d *Dispatcher) remove(w http.ResponseWriter, r *http.Request, m model.Model, id string) {
	instance, err := m.FindByID(r.Context(), id)
	if err != nil {
		d.fail(w, r, m, "delete", err)
		return
	}
	if instance == nil {
		response.Empty(w, http.StatusNotFound)
		return
	}

	if err := instance.Destroy(r.Context()); err != nil {
		d.fail(w, r, m, "delete", err)
		return
	}
	response.Empty(w, http.StatusOK)
}

// includes resolves the X-Include header. On an unknown name it writes a 400 and
// returns false.
func (d *Dispatcher) includes(w http.ResponseWriter, r *http.Request, m model.Model) ([]ormquery.Include, bool) {
	includes, missing := ResolveIncludes(d.registry, m.Schema(), webquery.ParseIncludeHeader(r))
	if missing != "" {
		response.NewHTTPError(http.StatusBadRequest, "invalid include: "+missing).WithCode("invalid_include").Render(w)
		return nil, false
	}
	return includes, true
}

func (d *Dispatcher) badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.RenderError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	response.RenderBadRequest(w, err.Error())
}

func (d *Dispatcher) fail(w http.ResponseWriter, r *http.Request, m model.Model, op string, err error) {
	d.logger.Error("persistence operation failed",
		zap.String("model", m.Schema().Name),
		zap.String("operation", op),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Error(err),
	)
	response.RenderInternalError(w, err)
}

func nonNil(records []model.Instance) []model.Instance {
	if records == nil {
		return []model.Instance{}
	}
	return records
}
