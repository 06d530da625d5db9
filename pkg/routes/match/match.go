// Package match exposes match preview and threshold endpoints.
package match

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/platform"
)

var validate = validator.New()

// Register registers match routes
func Register(g *echo.Group) {
	g.POST("/preview", Preview)
	g.POST("/score", Score)
	g.GET("/threshold", GetThreshold)
	g.PUT("/threshold", UpdateThreshold)
}

// Preview scores a record against the stored base without persisting it
func Preview(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.MatchPreviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Data.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "customer data is empty")
	}

	ctx, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := p.PreviewMatches(ctx, &req.Data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

// Score compares a record with one stored customer
func Score(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ScoreRequest
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

	result, err := p.ScoreAgainst(ctx, &req.Data, req.CandidateID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetThreshold returns the current match threshold
func GetThreshold(c echo.Context) error {
	ctx := c.Request().Context()

	_, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, models.ThresholdRequest{Threshold: p.MatchThreshold()})
}

// UpdateThreshold changes the match threshold at runtime
func UpdateThreshold(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ThresholdRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, p, err := ectoinject.GetContext[*platform.Platform](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := p.UpdateMatchThreshold(req.Threshold); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, models.ThresholdRequest{Threshold: p.MatchThreshold()})
}
