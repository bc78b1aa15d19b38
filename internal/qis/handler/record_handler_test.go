package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/middleware"
	"github.com/bitfantasy/nimo-qis/internal/notify"
	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
	"github.com/bitfantasy/nimo-qis/internal/qis/service"
	"github.com/bitfantasy/nimo-qis/internal/qis/store"
	"github.com/bitfantasy/nimo-qis/internal/qis/testutil"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

func setupRecordTest(t *testing.T, upstreamHandler http.Handler) (*gin.Engine, *store.RecordStore, func()) {
	t.Helper()
	ts := httptest.NewServer(upstreamHandler)

	st := store.NewRecordStore()
	svc := service.NewRecordService(st,
		upstream.NewClient(ts.URL, "test-token", 5*time.Second),
		notify.Nop{}, zap.NewNop())
	h := NewRecordHandler(svc)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1/qis")
	api.GET("/records", h.ListRecords)
	api.POST("/records", h.CreateRecord)
	api.POST("/records/refresh", h.RefreshRecords)
	api.GET("/records/:id", h.GetRecord)
	api.PUT("/records/:id", h.UpdateRecord)
	api.PATCH("/records/:id/status", h.UpdateRecordStatus)
	api.DELETE("/records/:id", middleware.RequireRole("qis_admin"), h.DeleteRecord)

	return r, st, ts.Close
}

func noopUpstream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func validSubmitBody() map[string]any {
	return map[string]any{
		"defectName":     "毛边",
		"areaOfDefect":   "顶部边缘",
		"quantity":       "3",
		"inspector":      "张三",
		"severity":       "High",
		"date":           "2026-01-15",
		"shift":          "白班",
		"product":        "水杯-500ml",
		"productionCode": "PC-2026-001",
	}
}

func TestListRecordsRequiresAuth(t *testing.T) {
	r, _, done := setupRecordTest(t, noopUpstream())
	defer done()

	w := testutil.DoRequest(r, "GET", "/api/v1/qis/records", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestListRecords(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{
		{ID: "r1", Status: entity.StatusOpen},
		{ID: "r2", Status: entity.StatusClosed},
	})

	w := testutil.DoRequest(r, "GET", "/api/v1/qis/records?status=open", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 0 {
		t.Fatalf("expected code 0, got %v", resp["code"])
	}
	data := resp["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 filtered item, got %d", len(items))
	}
	pagination := data["pagination"].(map[string]any)
	if pagination["total"].(float64) != 1 {
		t.Fatalf("expected total 1, got %v", pagination["total"])
	}
}

func TestGetRecord(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{{ID: "r1", DefectName: "毛边"}})

	w := testutil.DoRequest(r, "GET", "/api/v1/qis/records/r1", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]any)
	if data["defectName"] != "毛边" {
		t.Fatalf("unexpected record payload: %v", data)
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/qis/records/missing", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateRecord(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var payload map[string]any
		json.NewDecoder(req.Body).Decode(&payload)
		payload["id"] = "srv-1"
		payload["status"] = "Open"
		payload["correctiveActions"] = []any{}
		payload["preventiveActions"] = []any{}
		json.NewEncoder(w).Encode(payload)
	})
	r, st, done := setupRecordTest(t, echo)
	defer done()

	w := testutil.DoRequest(r, "POST", "/api/v1/qis/records", validSubmitBody(), testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]any)
	if data["id"] != "srv-1" {
		t.Fatalf("expected server id in response, got %v", data["id"])
	}
	if _, ok := st.Get("srv-1"); !ok {
		t.Fatal("created record must land in the collection")
	}
}

// 校验错误以结构化数据返回422
func TestCreateRecordValidationErrors(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	body := validSubmitBody()
	body["quantity"] = "abc"
	body["defectName"] = ""

	w := testutil.DoRequest(r, "POST", "/api/v1/qis/records", body, testutil.DefaultTestToken())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 42200 {
		t.Fatalf("expected code 42200, got %v", resp["code"])
	}
	fields := resp["data"].(map[string]any)["fields"].(map[string]any)
	if fields["quantity"] != "数量必须是整数" {
		t.Fatalf("expected quantity message, got %v", fields["quantity"])
	}
	if fields["defectName"] != "缺陷名称不能为空" {
		t.Fatalf("expected defectName message, got %v", fields["defectName"])
	}
	if st.Len() != 0 {
		t.Fatal("invalid submission must not touch the collection")
	}
}

// 上游失败时返回202，本地草稿已保留
func TestCreateRecordUpstreamDown(t *testing.T) {
	r, st, done := setupRecordTest(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer done()

	w := testutil.DoRequest(r, "POST", "/api/v1/qis/records", validSubmitBody(), testutil.DefaultTestToken())
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]any)
	if data["id"] == "" || data["id"] == nil {
		t.Fatal("fallback entry must carry an id")
	}
	if st.Len() != 1 {
		t.Fatal("draft must be kept in the collection")
	}
}

func TestUpdateRecord(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{{ID: "r1", Status: entity.StatusInProgress, DefectName: "旧"}})

	due := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	body := validSubmitBody()
	body["correctiveActions"] = []map[string]any{{"action": "更换模具", "responsible": "李四", "dueDate": due}}
	body["preventiveActions"] = []map[string]any{{"action": "巡检", "responsible": "王五", "dueDate": due}}

	// 上游204无回显但不算失败 → 本地草稿原位生效
	w := testutil.DoRequest(r, "PUT", "/api/v1/qis/records/r1", body, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rec, ok := st.Get("r1")
	if !ok || rec.DefectName != "毛边" {
		t.Fatalf("edit must land in place, got %+v ok=%v", rec, ok)
	}
	if st.Len() != 1 {
		t.Fatalf("edit must not grow the collection, got %d", st.Len())
	}
}

// 编辑缺措施列表 → 422带列表级错误
func TestUpdateRecordRequiresActions(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{{ID: "r1", Status: entity.StatusOpen}})

	w := testutil.DoRequest(r, "PUT", "/api/v1/qis/records/r1", validSubmitBody(), testutil.DefaultTestToken())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]any)
	ca := data["correctiveActions"].(map[string]any)
	if ca["general"] != "至少需要一条纠正措施" {
		t.Fatalf("expected corrective general error, got %v", ca)
	}
}

func TestUpdateRecordStatus(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{{ID: "r1", Status: entity.StatusOpen}})

	w := testutil.DoRequest(r, "PATCH", "/api/v1/qis/records/r1/status",
		map[string]any{"status": "Closed"}, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rec, _ := st.Get("r1")
	if rec.Status != entity.StatusClosed {
		t.Fatalf("expected Closed, got %q", rec.Status)
	}

	w = testutil.DoRequest(r, "PATCH", "/api/v1/qis/records/missing/status",
		map[string]any{"status": "Closed"}, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = testutil.DoRequest(r, "PATCH", "/api/v1/qis/records/r1/status",
		map[string]any{}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing status must be 400, got %d", w.Code)
	}
}

func TestDeleteRecordRequiresRole(t *testing.T) {
	r, st, done := setupRecordTest(t, noopUpstream())
	defer done()

	st.Replace([]entity.Record{{ID: "r1"}})

	viewer := testutil.GenerateTestToken("viewer-001", "Viewer", "viewer@test.com",
		[]string{"qis_viewer"}, nil)
	w := testutil.DoRequest(r, "DELETE", "/api/v1/qis/records/r1", nil, viewer)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}
	if st.Len() != 1 {
		t.Fatal("record must survive a forbidden delete")
	}

	w = testutil.DoRequest(r, "DELETE", "/api/v1/qis/records/r1", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	if st.Len() != 0 {
		t.Fatal("record must be removed")
	}
}

func TestRefreshRecords(t *testing.T) {
	r, st, done := setupRecordTest(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"id": "r1"}, {"id": "r2"}})
	}))
	defer done()

	w := testutil.DoRequest(r, "POST", "/api/v1/qis/records/refresh", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]any)
	if data["count"].(float64) != 2 {
		t.Fatalf("expected count 2, got %v", data["count"])
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 records in the collection, got %d", st.Len())
	}
}
