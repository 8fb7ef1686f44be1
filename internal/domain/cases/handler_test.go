package cases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lakbay/lakbay/internal/platform/auth"
)

func newHandlerTest() (*Handler, *Service) {
	svc, _, _ := newTestService()
	return NewHandler(svc), svc
}

func testContext(method, path, body string, sess auth.Session) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, sess.UserID)
	ctx = context.WithValue(ctx, auth.UserRoleKey, sess.Role)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	h, _ := newHandlerTest()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/cases":                     false,
		"POST /api/v1/cases":                    false,
		"GET /api/v1/cases/:id":                 false,
		"PUT /api/v1/cases/:id":                 false,
		"DELETE /api/v1/cases/:id":              false,
		"POST /api/v1/cases/:id/complete":       false,
		"POST /api/v1/cases/:id/archive":        false,
		"DELETE /api/v1/cases/:id/archive":      false,
		"GET /api/v1/patients":                  false,
		"GET /api/v1/patients/:patientId/cases": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route not registered: %s", route)
		}
	}
}

func TestCreateCaseHandler(t *testing.T) {
	h, _ := newHandlerTest()
	body := `{
		"patient_identifier": "JD-2025-001",
		"classification": "Pulmonary nodule",
		"date_of_encounter": "2025-06-01T00:00:00Z",
		"physician": "Dr. Reyes"
	}`
	c, rec := testContext(http.MethodPost, "/api/v1/cases", body, providerSession())

	if err := h.CreateCase(c); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var created Case
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.CurrentStage != StageNewCase {
		t.Errorf("stage = %s, want New Case", created.CurrentStage)
	}
	if created.ID == uuid.Nil {
		t.Error("expected generated id")
	}
}

func TestCreateCaseHandlerValidation(t *testing.T) {
	h, _ := newHandlerTest()
	c, _ := testContext(http.MethodPost, "/api/v1/cases", `{"physician": "Dr. Reyes"}`, providerSession())

	err := h.CreateCase(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetCaseHandlerNotFound(t *testing.T) {
	h, _ := newHandlerTest()
	c, _ := testContext(http.MethodGet, "/api/v1/cases/"+uuid.NewString(), "", providerSession())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetCase(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUpdateCaseHandlerStaleVersionConflict(t *testing.T) {
	h, svc := newHandlerTest()
	ctx := context.Background()

	cs := validCase()
	if err := svc.CreateCase(ctx, cs); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	// First edit bumps the version.
	symptoms := "persistent cough"
	if _, err := svc.UpdateCase(ctx, providerSession(), cs.ID, UpdateInput{Symptoms: &symptoms, Version: 1}); err != nil {
		t.Fatalf("seed update: %v", err)
	}

	c, _ := testContext(http.MethodPut, "/api/v1/cases/"+cs.ID.String(),
		`{"symptoms": "weight loss", "version": 1}`, providerSession())
	c.SetParamNames("id")
	c.SetParamValues(cs.ID.String())

	err := h.UpdateCase(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestCompleteCaseHandler(t *testing.T) {
	h, svc := newHandlerTest()
	ctx := context.Background()

	cs := validCase()
	cs.Alert = AlertOverdue
	if err := svc.CreateCase(ctx, cs); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	c, rec := testContext(http.MethodPost, "/api/v1/cases/"+cs.ID.String()+"/complete",
		`{"reason": "Treatment Done", "notes": "discharged"}`, adminSession())
	c.SetParamNames("id")
	c.SetParamValues(cs.ID.String())

	if err := h.CompleteCase(c); err != nil {
		t.Fatalf("CompleteCase: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var done Case
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !done.Completed || done.Alert != AlertNormal {
		t.Errorf("completed=%v alert=%s after complete", done.Completed, done.Alert)
	}
}

func TestArchiveHandlerRoundTrip(t *testing.T) {
	h, svc := newHandlerTest()
	ctx := context.Background()
	sess := providerSession()

	cs := validCase()
	if err := svc.CreateCase(ctx, cs); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	c, rec := testContext(http.MethodPost, "/api/v1/cases/"+cs.ID.String()+"/archive", "", sess)
	c.SetParamNames("id")
	c.SetParamValues(cs.ID.String())
	if err := h.ArchiveCase(c); err != nil {
		t.Fatalf("ArchiveCase: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	c, rec = testContext(http.MethodDelete, "/api/v1/cases/"+cs.ID.String()+"/archive", "", sess)
	c.SetParamNames("id")
	c.SetParamValues(cs.ID.String())
	if err := h.UnarchiveCase(c); err != nil {
		t.Fatalf("UnarchiveCase: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestListCasesHandlerScenario(t *testing.T) {
	h, svc := newHandlerTest()
	ctx := context.Background()

	cs := &Case{
		PatientIdentifier: "JD-2025-001",
		CurrentStage:      StageNewCase,
		Classification:    ClassNodule,
		DateOfEncounter:   time.Now().AddDate(0, 0, -3),
		Alert:             AlertNormal,
	}
	if err := svc.CreateCase(ctx, cs); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	c, rec := testContext(http.MethodGet, "/api/v1/cases", "", providerSession())
	if err := h.ListCases(c); err != nil {
		t.Fatalf("ListCases: %v", err)
	}

	var resp struct {
		Data  []CaseView `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Data[0].DisplayStage != "New Case" {
		t.Errorf("display stage = %q", resp.Data[0].DisplayStage)
	}
}
