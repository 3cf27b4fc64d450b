package treatment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler(newTestService())
	e := echo.New()
	return h, e
}

func TestHandler_AddFinding(t *testing.T) {
	h, e := newTestHandler()
	patientID := uuid.New()

	body := `{"tooth_number":36,"condition":"caries","surface":"O"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())

	if err := h.AddFinding(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var f ToothFinding
	json.Unmarshal(rec.Body.Bytes(), &f)
	if f.PatientID != patientID {
		t.Errorf("expected patient id from the path, got %s", f.PatientID)
	}
}

func TestHandler_ListFindings_EmptyIsArray(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.ListFindings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestHandler_AddStep_BadType(t *testing.T) {
	h, e := newTestHandler()

	body := `{"tooth_number":46,"step_type":"bleaching"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.AddStep(c); err == nil {
		t.Error("expected error for unknown step type")
	}
}

func TestHandler_UpdateStep(t *testing.T) {
	h, e := newTestHandler()

	s := &TreatmentStep{AppointmentID: uuid.New(), ToothNumber: 46, StepType: StepFilling}
	h.svc.AddStep(context.Background(), s)

	body := `{"tooth_number":46,"step_type":"filling","status":"completed"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(s.ID.String())

	if err := h.UpdateStep(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := h.svc.GetStep(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StepCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.AppointmentID != s.AppointmentID {
		t.Error("appointment binding must not change on update")
	}
}

func TestHandler_RemoveStep_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.RemoveStep(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
