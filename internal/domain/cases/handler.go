package cases

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lakbay/lakbay/internal/platform/auth"
	"github.com/lakbay/lakbay/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := api.Group("", auth.RequireRole("provider"))
	clinical.GET("/cases", h.ListCases)
	clinical.POST("/cases", h.CreateCase)
	clinical.GET("/cases/:id", h.GetCase)
	clinical.PUT("/cases/:id", h.UpdateCase)
	clinical.DELETE("/cases/:id", h.DeleteCase)
	clinical.POST("/cases/:id/archive", h.ArchiveCase)
	clinical.DELETE("/cases/:id/archive", h.UnarchiveCase)
	clinical.GET("/patients", h.ListPatients)
	clinical.GET("/patients/:patientId/cases", h.ListCasesByPatient)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/cases/:id/complete", h.CompleteCase)
}

func (h *Handler) CreateCase(c echo.Context) error {
	var cs Case
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCase(c.Request().Context(), &cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Search:         c.QueryParam("search"),
		Classification: c.QueryParam("classification"),
	}
	includeArchived := c.QueryParam("archived") == "true"
	sess := auth.SessionFromContext(c.Request().Context())

	items, total, err := h.svc.ListCases(c.Request().Context(), sess, f, includeArchived, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := auth.SessionFromContext(c.Request().Context())
	cs, err := h.svc.UpdateCase(c.Request().Context(), sess, id, in)
	if err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) DeleteCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCase(c.Request().Context(), id); err != nil {
		return caseError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CompleteRequest is the body of the admin complete action.
type CompleteRequest struct {
	Reason CompletionReason `json:"reason"`
	Notes  string           `json:"notes"`
}

func (h *Handler) CompleteCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.CompleteCase(c.Request().Context(), id, req.Reason, req.Notes)
	if err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) ArchiveCase(c echo.Context) error {
	return h.setArchived(c, true)
}

func (h *Handler) UnarchiveCase(c echo.Context) error {
	return h.setArchived(c, false)
}

func (h *Handler) setArchived(c echo.Context, archived bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	ctx := c.Request().Context()
	if archived {
		err = h.svc.ArchiveCase(ctx, userID, id)
	} else {
		err = h.svc.UnarchiveCase(ctx, userID, id)
	}
	if err != nil {
		return caseError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patients": patients})
}

func (h *Handler) ListCasesByPatient(c echo.Context) error {
	items, err := h.svc.ListCasesByPatient(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cases": items})
}

// caseError maps service errors onto HTTP responses.
func caseError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStaleVersion):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrPhysicianAdminOnly):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrCaseCompleted):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
