package dashboard

import (
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
	api.GET("/dashboard/provider", h.ProviderDashboard, auth.RequireRole("provider"))
	api.GET("/dashboard/admin", h.AdminDashboard, auth.RequireRole("admin"))
	api.GET("/dashboard/patient", h.PatientDashboard, auth.RequireRole("patient"))
}

func filterFromQuery(c echo.Context) cases.Filter {
	return cases.Filter{
		Search:         c.QueryParam("search"),
		Classification: c.QueryParam("classification"),
	}
}

func (h *Handler) ProviderDashboard(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	summary, err := h.svc.ProviderSummary(c.Request().Context(), sess, filterFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	summary, err := h.svc.AdminSummary(c.Request().Context(), sess, filterFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess.CaseNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no case number on this account")
	}
	view, err := h.svc.PatientDashboard(c.Request().Context(), sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}
