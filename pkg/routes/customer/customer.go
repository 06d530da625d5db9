// Package customer exposes the ingestion and golden record endpoints.
package customer

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/coreplane/unify/pkg/appcontext"
	"github.com/coreplane/unify/pkg/graph"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/platform"
	"github.com/coreplane/unify/pkg/processor"
)

var validate = validator.New()

// Register registers customer routes
func Register(g *echo.Group) {
	g.POST("", Ingest)
	g.POST("/import", Import)
	g.GET("", List)
	g.GET("/search", Search)
	g.GET("/:id", Get)
	g.GET("/:id/history", GetHistory)
	g.GET("/:id/related", GetRelated)
	g.DELETE("/:id", Delete)
}

// Ingest adds one customer record from a source system
func Ingest(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.IngestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := p.AddCustomerData(ctx, &req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	switch result.Status {
	case models.IngestStatusCreated:
		status = http.StatusCreated
	case models.IngestStatusConflictDetected:
		status = http.StatusConflict
	case models.IngestStatusError:
		status = http.StatusBadRequest
	}

	return c.JSON(status, result)
}

// Import processes a batch of customer records
func Import(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ImportRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, imports, err := ectoinject.GetContext[*processor.ImportProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := imports.ProcessBatch(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// List returns a page of customers, newest first
func List(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	customers, err := p.ListCustomers(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customers)
}

// Search returns customers matching the query parameters
func Search(c echo.Context) error {
	ctx := c.Request().Context()

	var criteria models.SearchCriteria
	if err := c.Bind(&criteria); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid search criteria")
	}
	if criteria.IsZero() {
		return httperror.NewHTTPError(http.StatusBadRequest, "at least one search criterion is required")
	}

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	customers, err := p.SearchCustomers(ctx, criteria)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customers)
}

// Get returns one customer with its field history
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	customer, err := p.GetCustomer(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// GetHistory returns the field change log for one customer
func GetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	history, err := p.GetHistory(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, history)
}

// GetRelated returns customers linked through shared keys in the graph
func GetRelated(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, projection, err := ectoinject.GetContext[*graph.Projection](ctx)
	if err != nil || projection == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph database not configured")
	}

	related, err := projection.Related(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, related)
}

// Delete removes a customer and its history
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	source := appcontext.GetSource(ctx)
	if source == "" {
		source = "api"
	}

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := p.DeleteCustomer(ctx, id, source); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
