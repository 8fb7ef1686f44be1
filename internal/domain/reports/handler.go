package reports

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole("admin"))
	admin.GET("/reports/summary", h.Summary)
	admin.GET("/reports/cases/export", h.ExportCases)
}

func (h *Handler) Summary(c echo.Context) error {
	stats, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ExportCases(c echo.Context) error {
	f := cases.Filter{Classification: c.QueryParam("classification")}
	export, err := h.svc.ExportCases(c.Request().Context(), f)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.Filename+`"`)
	return c.Blob(http.StatusOK, "text/csv", export.Data)
}
