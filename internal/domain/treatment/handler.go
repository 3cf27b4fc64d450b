package treatment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRoles(auth.RoleDoctor, auth.RoleAssistant, auth.RoleAdmin))
	g.GET("/patients/:id/findings", h.ListFindings)
	g.POST("/patients/:id/findings", h.AddFinding)
	g.DELETE("/findings/:id", h.RemoveFinding)

	g.GET("/appointments/:id/steps", h.ListSteps)
	g.POST("/appointments/:id/steps", h.AddStep)
	g.PUT("/steps/:id", h.UpdateStep)
	g.DELETE("/steps/:id", h.RemoveStep)
}

func (h *Handler) AddFinding(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var f ToothFinding
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.PatientID = patientID
	if err := h.svc.AddFinding(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListFindings(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	findings, err := h.svc.PatientFindings(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if findings == nil {
		findings = []*ToothFinding{}
	}
	return c.JSON(http.StatusOK, findings)
}

func (h *Handler) RemoveFinding(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveFinding(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrFindingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "finding not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddStep(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var s TreatmentStep
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.AppointmentID = appointmentID
	if err := h.svc.AddStep(c.Request().Context(), &s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListSteps(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	steps, err := h.svc.AppointmentSteps(c.Request().Context(), appointmentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if steps == nil {
		steps = []*TreatmentStep{}
	}
	return c.JSON(http.StatusOK, steps)
}

func (h *Handler) UpdateStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	current, err := h.svc.GetStep(c.Request().Context(), id)
	if errors.Is(err, ErrStepNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "step not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var s TreatmentStep
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.ID = id
	s.AppointmentID = current.AppointmentID
	if err := h.svc.UpdateStep(c.Request().Context(), &s); err != nil {
		if errors.Is(err, ErrStepNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "step not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) RemoveStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveStep(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrStepNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "step not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
