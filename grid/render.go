package grid

import (
	"fmt"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ext"
)

// Metadata is the widget layout payload.
type Metadata struct {
	DataURL        string          `json:"data_url"`
	ColumnMappings []ColumnMapping `json:"column_mappings"`
	ColumnModel    []ColumnModel   `json:"column_model"`
}

type ColumnMapping struct {
	Name    string `json:"name"`
	Mapping string `json:"mapping"`
}

type ColumnModel struct {
	Header    string `json:"header"`
	DataIndex string `json:"dataIndex"`
	Width     int    `json:"width"`
	Sortable  bool   `json:"sortable"`
}

// Data is one page of rows together with the unpaged total.
type Data struct {
	Total   int   `json:"total"`
	Records []Row `json:"records"`
}

// Row maps column ids, plus "id", to values.
type Row map[string]any

// Metadata describes the grid layout. id, when set, is passed on to the
// data URL.
func (g *Grid) Metadata(req *ext.Request, id string) Metadata {
	md := Metadata{
		DataURL:        req.URLFor(g.DataAction(), id),
		ColumnMappings: make([]ColumnMapping, 0, len(g.columns)),
		ColumnModel:    make([]ColumnModel, 0, len(g.columns)),
	}

	for _, col := range g.columns {
		md.ColumnMappings = append(md.ColumnMappings, ColumnMapping{Name: col.ID, Mapping: col.ID})
		if col.Exclude {
			continue
		}

		width := col.Width
		if width == 0 {
			width = defaultWidth
		}
		md.ColumnModel = append(md.ColumnModel, ColumnModel{
			Header:    col.Label,
			DataIndex: col.ID,
			Width:     width,
			Sortable:  col.Sortable,
		})
	}

	return md
}

// Rows answers a data request: the source is sorted by the "sort" and
// "dir" params, paged by "start" and "limit", and each record projected
// onto the columns.
func (g *Grid) Rows(req *ext.Request) (Data, error) {
	src, err := g.resolveSource(req)
	if err != nil {
		return Data{}, err
	}

	src = g.applySort(req, src)
	src = g.applyPaging(req, src)

	ctx := req.Ctx()
	total, err := src.Count(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("grid %s: count: %w", g.name, err)
	}

	records, err := src.Fetch(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("grid %s: fetch: %w", g.name, err)
	}

	data := Data{Total: total, Records: make([]Row, 0, len(records))}
	for _, rec := range records {
		row, err := g.project(req, rec)
		if err != nil {
			return Data{}, err
		}
		data.Records = append(data.Records, row)
	}

	g.logDebug(req, "rendered grid rows", "total", total, "rows", len(data.Records))
	return data, nil
}

// applySort orders by the requested column. Unknown columns and columns
// without a sort field leave the source unordered.
func (g *Grid) applySort(req *ext.Request, src core.Source) core.Source {
	sort := req.Param("sort")
	if sort == "" {
		return src
	}

	col, ok := g.column(sort)
	if !ok {
		g.logDebug(req, "ignoring sort on unknown column", "sort", sort)
		return src
	}

	field := col.SortKey
	if field == "" && col.Accessor.Kind() == ext.AttributeAccessor {
		field = g.sortPrefix + col.Accessor.Name()
	}
	if field == "" {
		g.logDebug(req, "ignoring sort on column without sort field", "sort", sort)
		return src
	}

	return src.OrderBy(field, core.ParseDirection(req.Param("dir")))
}

// applyPaging applies "start" and "limit". A limit that is not a positive
// number leaves the page unbounded.
func (g *Grid) applyPaging(req *ext.Request, src core.Source) core.Source {
	if req.HasParam("start") {
		src = src.Offset(max(req.IntParam("start"), 0))
	}
	if req.HasParam("limit") {
		if limit := req.IntParam("limit"); limit > 0 {
			src = src.Limit(limit)
		}
	}
	return src
}

func (g *Grid) project(req *ext.Request, rec core.Record) (Row, error) {
	row := make(Row, len(g.columns)+1)

	var delegate core.Record
	delegateResolved := false

	for _, col := range g.columns {
		target := rec
		if col.Accessor.Kind() == ext.AttributeAccessor && g.delegate != "" && !g.delegateExcept[col.ID] {
			if !delegateResolved {
				d, err := g.resolveDelegate(rec)
				if err != nil {
					return nil, err
				}
				delegate, delegateResolved = d, true
			}
			target = delegate
		}

		value, err := col.Accessor.Resolve(req, target)
		if err != nil {
			return nil, fmt.Errorf("grid %s: column %s of %s %s: %w", g.name, col.ID, rec.Type(), rec.ID(), err)
		}
		row[col.ID] = value
	}

	row["id"] = g.rowID(rec)
	return row, nil
}

func (g *Grid) resolveDelegate(rec core.Record) (core.Record, error) {
	v, err := rec.Attr(g.delegate)
	if err != nil {
		return nil, fmt.Errorf("grid %s: delegate %s: %w", g.name, g.delegate, err)
	}
	if v == nil {
		return nil, nil
	}

	d, ok := v.(core.Record)
	if !ok {
		return nil, fmt.Errorf("grid %s: delegate %s of %s %s is a %T, not a record", g.name, g.delegate, rec.Type(), rec.ID(), v)
	}
	return d, nil
}
