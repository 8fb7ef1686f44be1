package users

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lakbay/lakbay/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the public auth endpoints and the admin user
// management endpoints. public carries no auth middleware; api does.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.POST("/auth/signup", h.SignUp)
	public.POST("/auth/signin", h.SignIn)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users/:id/approve", h.ApproveUser)
	admin.DELETE("/users/:id", h.RejectUser)
	admin.PUT("/users/:id/case-number", h.AssignCaseNumber)
}

func (h *Handler) SignUp(c echo.Context) error {
	var in SignUpInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.SignUp(c.Request().Context(), in)
	if err != nil {
		return userError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) SignIn(c echo.Context) error {
	var in SignInInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.SignIn(c.Request().Context(), in)
	if err != nil {
		return userError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListUsers(c echo.Context) error {
	list, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) ApproveUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.ApproveUser(c.Request().Context(), id); err != nil {
		return userError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RejectUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RejectUser(c.Request().Context(), id); err != nil {
		return userError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignCaseNumberRequest is the body of the case-number reassignment.
type AssignCaseNumberRequest struct {
	CaseNumber string `json:"case_number"`
}

func (h *Handler) AssignCaseNumber(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AssignCaseNumberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AssignCaseNumber(c.Request().Context(), id, req.CaseNumber); err != nil {
		return userError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// userError maps service errors onto HTTP responses. Sign-in failures
// all surface the user-facing message the dashboards show inline.
func userError(err error) error {
	switch {
	case errors.Is(err, ErrRoleNotSelected), errors.Is(err, ErrMissingField):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoMatch):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrPendingApproval):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNoMatchingCase):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
