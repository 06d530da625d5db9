// Package stats exposes statistics, export, and audit endpoints.
package stats

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/coreplane/unify/pkg/audit"
	"github.com/coreplane/unify/pkg/platform"
)

// Register registers stats routes
func Register(g *echo.Group) {
	g.GET("", GetStatistics)
	g.GET("/export", Export)
	g.GET("/audit", Audit)
}

// GetStatistics returns the system-wide counters
func GetStatistics(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := p.Statistics(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// Export returns a full dump of the customer base with history
func Export(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	bundle, err := p.Export(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bundle)
}

// Audit runs an integrity scan over the customer base
func Audit(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, auditor, err := ectoinject.GetContext[*audit.Auditor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := auditor.Run(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
