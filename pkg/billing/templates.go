package billing

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/operator-framework/cost-reporting/pkg/discount"
	"github.com/operator-framework/cost-reporting/pkg/duckdb"
)

const (
	// discountExprTemplate renders the multiplier of the current row's
	// service. Services missing from the schedule get the default multiplier.
	discountExprTemplate = `
{|- if .Discounts -|}
CASE {| ident .ServiceCodeColumn |}
{|- range .Discounts |}
	WHEN {| sqlString .ServiceCode |} THEN CAST({| .Multiplier |} AS DOUBLE)
{|- end |}
	ELSE CAST({| .DefaultMultiplier |} AS DOUBLE)
END
{|- else -|}
CAST({| .DefaultMultiplier |} AS DOUBLE)
{|- end -|}
`

	undiscountedCostQueryTemplate = `
SELECT SUM({| ident .CostColumn |})
FROM {| ident .Table |}
WHERE {| ident .ServiceCodeColumn |} = ?
`

	discountedCostQueryTemplate = `
SELECT SUM({| ident .CostColumn |} * CAST(? AS DOUBLE))
FROM {| ident .Table |}
WHERE {| ident .ServiceCodeColumn |} = ?
`

	blendedDiscountRateQueryTemplate = `
SELECT
	SUM({| ident .CostColumn |}) AS undiscounted_cost,
	SUM({| ident .CostColumn |} * ({| .DiscountExpr | nindent 8 | trim |})) AS discounted_cost
FROM {| ident .Table |}
`

	allCostsQueryTemplate = `
SELECT
	{| ident .ServiceCodeColumn |} AS service_code,
	SUM({| ident .CostColumn |}) AS undiscounted_cost,
	SUM({| ident .CostColumn |} * ({| .DiscountExpr | nindent 8 | trim |})) AS discounted_cost
FROM {| ident .Table |}
GROUP BY {| ident .ServiceCodeColumn |}
ORDER BY {| ident .ServiceCodeColumn |} ASC
`

	rowCountQueryTemplate = `SELECT count(*) FROM {| ident .Table |}`

	// usageProjectionTemplate builds the canonical table from the staging
	// table. Required columns are renamed and cast, everything else is
	// carried as is.
	usageProjectionTemplate = `
SELECT
{|- range $i, $col := .Columns |}
	{| if $i |},{| end |}
	{|- if $col.Cast |}CAST({| ident $col.Source |} AS {| $col.Cast |}) AS {| ident $col.Target |}
	{|- else |}{| ident $col.Source |}{| end |}
{|- end |}
FROM {| ident .Table |}
WHERE CAST({| ident .LineItemTypeColumn |} AS VARCHAR) = {| sqlString .LineItemType |}
`
)

type serviceDiscount struct {
	ServiceCode string
	Multiplier  string
}

type costQueryTemplateContext struct {
	Table             string
	CostColumn        string
	ServiceCodeColumn string
	Discounts         []serviceDiscount
	DefaultMultiplier string
	DiscountExpr      string
}

type projectedColumn struct {
	Source string
	Target string
	Cast   string
}

type projectionTemplateContext struct {
	Table              string
	Columns            []projectedColumn
	LineItemTypeColumn string
	LineItemType       string
}

func newQueryTemplate(name, queryTemplate string) (*template.Template, error) {
	var templateFuncMap = template.FuncMap{
		"ident":     duckdb.QuoteIdentifier,
		"sqlString": duckdb.QuoteString,
	}

	tmpl, err := template.New(name).Delims("{|", "|}").Funcs(sprig.TxtFuncMap()).Funcs(templateFuncMap).Parse(queryTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing query %s: %v", name, err)
	}
	return tmpl, nil
}

func renderQuery(name, queryTemplate string, tmplCtx interface{}) (string, error) {
	tmpl, err := newQueryTemplate(name, queryTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tmplCtx); err != nil {
		return "", fmt.Errorf("error executing template %s: %v", name, err)
	}
	return buf.String(), nil
}

// costQueries are the aggregate statements of a store. They are rendered
// once because the discount schedule never changes after start up.
type costQueries struct {
	undiscountedCost    string
	discountedCost      string
	blendedDiscountRate string
	allCosts            string
	rowCount            string
}

func newCostQueryTemplateContext(schedule discount.Schedule) *costQueryTemplateContext {
	tmplCtx := &costQueryTemplateContext{
		Table:             TableName,
		CostColumn:        UnblendedCostColumnName,
		ServiceCodeColumn: ServiceCodeColumnName,
		DefaultMultiplier: discount.NoDiscount.String(),
	}
	for _, code := range schedule.ServiceCodes() {
		tmplCtx.Discounts = append(tmplCtx.Discounts, serviceDiscount{
			ServiceCode: code,
			Multiplier:  schedule.MultiplierFor(code).String(),
		})
	}
	return tmplCtx
}

func renderCostQueries(schedule discount.Schedule) (costQueries, error) {
	tmplCtx := newCostQueryTemplateContext(schedule)
	expr, err := renderQuery("discount-expr", discountExprTemplate, tmplCtx)
	if err != nil {
		return costQueries{}, err
	}
	tmplCtx.DiscountExpr = expr

	var queries costQueries
	for _, q := range []struct {
		name     string
		template string
		dest     *string
	}{
		{"undiscounted-cost", undiscountedCostQueryTemplate, &queries.undiscountedCost},
		{"discounted-cost", discountedCostQueryTemplate, &queries.discountedCost},
		{"blended-discount-rate", blendedDiscountRateQueryTemplate, &queries.blendedDiscountRate},
		{"all-costs", allCostsQueryTemplate, &queries.allCosts},
		{"row-count", rowCountQueryTemplate, &queries.rowCount},
	} {
		rendered, err := renderQuery(q.name, q.template, tmplCtx)
		if err != nil {
			return costQueries{}, err
		}
		*q.dest = rendered
	}
	return queries, nil
}

func renderUsageProjection(tmplCtx *projectionTemplateContext) (string, error) {
	return renderQuery("usage-projection", usageProjectionTemplate, tmplCtx)
}
