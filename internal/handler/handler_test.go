package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/auth"
	"github.com/nnlgsakib/npo-web/internal/handler"
	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/members"
	"github.com/nnlgsakib/npo-web/internal/posts"
	"github.com/nnlgsakib/npo-web/internal/txns"
	"github.com/nnlgsakib/npo-web/internal/upload"
)

const testAdminKey = "test-admin-key"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	db, err := kvstore.Open("", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seq := kvstore.NewSequence(db, logger)
	uploads, err := upload.NewManager(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("upload manager: %v", err)
	}

	h := handler.New(
		posts.NewKVStore(db, seq, logger),
		txns.New(db, seq, logger),
		members.New(db, false, logger),
		uploads,
		handler.Options{
			AdminKey:      testAdminKey,
			JWTSigningKey: "test-signing-key",
			JWTIssuer:     "npo-api",
			TokenTTL:      time.Hour,
		},
		logger,
	)

	r := gin.New()
	h.Register(r, auth.AdminOnly(testAdminKey, "test-signing-key", "npo-api", logger))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(auth.AdminKeyHeader, testAdminKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", gin.H{"key": testAdminKey}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d body=%s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatal("expected a token")
	}

	// the issued token must be accepted by the admin gate
	req := httptest.NewRequest(http.MethodGet, "/api/filter_txns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer request = %d body=%s", rec.Code, rec.Body.String())
	}

	if w := doJSON(t, r, http.MethodPost, "/api/admin/login", gin.H{"key": "wrong"}, false); w.Code != http.StatusForbidden {
		t.Fatalf("wrong key = %d, want 403", w.Code)
	}
}

func TestAdminGateBlocksAnonymous(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/create-post", gin.H{"title": "x", "description": "y", "imageUrl": "https://e.x/a.png"}, false)
	if w.Code != http.StatusForbidden {
		t.Fatalf("anonymous create = %d, want 403", w.Code)
	}
}

func TestPostLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/create-post", gin.H{
		"title":       "Annual report",
		"subTitle":    "2025",
		"description": "Details inside",
		"imageUrl":    "https://example.org/report.png",
	}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d body=%s", w.Code, w.Body.String())
	}
	created := decode(t, w)["post"].(map[string]any)
	id := created["id"].(string)
	if id == "" {
		t.Fatal("created post has no id")
	}

	w = doJSON(t, r, http.MethodGet, "/api/get_post_full_by_id?id="+id, nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	got := decode(t, w)["post"].(map[string]any)
	if got["title"] != "Annual report" || got["subTitle"] != "2025" {
		t.Fatalf("unexpected post %v", got)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/edit-post_by_id", gin.H{"id": id, "title": "Annual report (rev)"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("edit = %d body=%s", w.Code, w.Body.String())
	}
	edited := decode(t, w)["post"].(map[string]any)
	if edited["title"] != "Annual report (rev)" {
		t.Fatalf("title not updated: %v", edited["title"])
	}
	if edited["description"] != "Details inside" {
		t.Fatalf("description clobbered: %v", edited["description"])
	}

	w = doJSON(t, r, http.MethodGet, "/api/get_all_posts", nil, false)
	listed := decode(t, w)["posts"].([]any)
	if len(listed) != 1 {
		t.Fatalf("list len = %d", len(listed))
	}
	if img := listed[0].(map[string]any)["image"]; img != "https://example.org/report.png" {
		t.Fatalf("external image rewritten: %v", img)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/delete-post_by_id?id="+id, nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, "/api/get_post_full_by_id?id="+id, nil, false); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", w.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	r := newTestRouter(t)

	// missing description
	w := doJSON(t, r, http.MethodPost, "/api/create-post", gin.H{"title": "x", "imageUrl": "https://e.x/a.png"}, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no description = %d, want 400", w.Code)
	}
	// missing image source
	w = doJSON(t, r, http.MethodPost, "/api/create-post", gin.H{"title": "x", "description": "y"}, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no image = %d, want 400", w.Code)
	}
	// legacy content field stands in for description
	w = doJSON(t, r, http.MethodPost, "/api/create-post", gin.H{"title": "x", "content": "y", "imageUrl": "https://e.x/a.png"}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("content fallback = %d, want 201", w.Code)
	}
}

func TestCreatePostMultipartUpload(t *testing.T) {
	r := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Photo day")
	mw.WriteField("description", "Pictures from the field")
	fw, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="field.png"`},
		"Content-Type":        {"image/png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/create-post", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(auth.AdminKeyHeader, testAdminKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("multipart create = %d body=%s", w.Code, w.Body.String())
	}
	post := decode(t, w)["post"].(map[string]any)
	path, _ := post["imagePath"].(string)
	if !strings.HasSuffix(path, "-field.png") {
		t.Fatalf("imagePath = %q", path)
	}

	// summaries serve the uploaded file as an absolute URL
	lw := doJSON(t, r, http.MethodGet, "/api/get_all_posts", nil, false)
	listed := decode(t, lw)["posts"].([]any)
	img := listed[0].(map[string]any)["image"].(string)
	if !strings.HasPrefix(img, "http://") || !strings.Contains(img, "/uploads/") {
		t.Fatalf("summary image = %q", img)
	}
}

func TestTxnRecordAndLedger(t *testing.T) {
	r := newTestRouter(t)

	for i, amount := range []float64{100, 250, 50} {
		w := doJSON(t, r, http.MethodPost, "/api/rec_txn", gin.H{
			"name":   "Donor",
			"number": "017000000",
			"txnId":  fmt.Sprintf("TX-%d", i),
			"amount": amount,
		}, false)
		if w.Code != http.StatusCreated {
			t.Fatalf("rec_txn %d = %d body=%s", i, w.Code, w.Body.String())
		}
	}

	// duplicate external id is rejected
	w := doJSON(t, r, http.MethodPost, "/api/rec_txn", gin.H{"number": "x", "txnId": "TX-0", "amount": 5.0}, false)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate = %d, want 409", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/get_full_txn_record?page=1&pageSize=2", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger = %d", w.Code)
	}
	body := decode(t, w)
	if body["totalAmount"].(float64) != 400 {
		t.Fatalf("totalAmount = %v", body["totalAmount"])
	}
	if body["count"].(float64) != 3 {
		t.Fatalf("count = %v", body["count"])
	}
	if got := len(body["txns"].([]any)); got != 2 {
		t.Fatalf("page len = %d, want 2", got)
	}
}

func TestTxnValidation(t *testing.T) {
	r := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/rec_txn", gin.H{"txnId": "a", "amount": 1.0}, false); w.Code != http.StatusBadRequest {
		t.Fatalf("missing number = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/rec_txn", gin.H{"number": "x", "txnId": "a", "amount": -3.0}, false); w.Code != http.StatusBadRequest {
		t.Fatalf("negative amount = %d, want 400", w.Code)
	}
}

func TestFilterTxns(t *testing.T) {
	r := newTestRouter(t)

	seed := []gin.H{
		{"name": "Alice", "number": "111", "txnId": "F1", "amount": 10.0},
		{"name": "alice", "number": "222", "txnId": "F2", "amount": 20.0},
		{"name": "Bob", "number": "111", "txnId": "F3", "amount": 30.0},
	}
	for _, s := range seed {
		if w := doJSON(t, r, http.MethodPost, "/api/rec_txn", s, false); w.Code != http.StatusCreated {
			t.Fatalf("seed failed: %s", w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/filter_txns?name=ALICE", nil, true)
	if got := len(decode(t, w)["txns"].([]any)); got != 2 {
		t.Fatalf("name filter hits = %d, want 2", got)
	}

	w = doJSON(t, r, http.MethodGet, "/api/filter_txns?name=alice&number=111", nil, true)
	list := decode(t, w)["txns"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["txnId"] != "F1" {
		t.Fatalf("combined filter = %v", list)
	}
}

func submitMember(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"name":            name,
		"fathersName":     "Father",
		"mothersName":     "Mother",
		"region":          "Dhaka",
		"institution":     "School",
		"address":         "Street 1",
		"email":           name + "@example.org",
		"whyJoining":      "to help",
		"howDidYouFindUs": "friend",
		"hobbies":         "reading",
		"phoneNumber":     "017",
	} {
		mw.WriteField(field, value)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/submit_member_req", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit = %d body=%s", w.Code, w.Body.String())
	}
	return decode(t, w)["request"].(map[string]any)["id"].(string)
}

func TestMemberLifecycle(t *testing.T) {
	r := newTestRouter(t)
	id := submitMember(t, r, "Rahim")

	// visible while pending
	w := doJSON(t, r, http.MethodGet, "/api/get_pending_request_info_by_id?id="+id, nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("pending info = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/manage_member_req_by_id", gin.H{"id": id, "action": "approve", "designation": "Coordinator"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d body=%s", w.Code, w.Body.String())
	}

	// no longer pending
	if w = doJSON(t, r, http.MethodGet, "/api/get_pending_request_info_by_id?id="+id, nil, true); w.Code != http.StatusNotFound {
		t.Fatalf("pending after approve = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/get_member_info_by_id?id="+id, nil, false)
	member := decode(t, w)["member"].(map[string]any)
	if member["designation"] != "Coordinator" || member["isPinned"] != false {
		t.Fatalf("official member = %v", member)
	}

	// projection keeps only requested fields plus id
	w = doJSON(t, r, http.MethodGet, "/api/get_member_info_by_id?id="+id+"&fields=name,designation", nil, false)
	projected := decode(t, w)["member"].(map[string]any)
	if len(projected) != 3 || projected["name"] != "Rahim" || projected["id"] != id {
		t.Fatalf("projection = %v", projected)
	}

	// pin, list pinned, unpin
	w = doJSON(t, r, http.MethodPatch, "/api/pin_member_as_vip_by_id", gin.H{"id": id}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("pin = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/get_all_pinned_members", nil, false)
	if got := len(decode(t, w)["members"].([]any)); got != 1 {
		t.Fatalf("pinned = %d, want 1", got)
	}
	w = doJSON(t, r, http.MethodPatch, "/api/unpin_member_as_vip_by_id", gin.H{"id": id}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("unpin = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/get_all_pinned_members", nil, false)
	if got := len(decode(t, w)["members"].([]any)); got != 0 {
		t.Fatalf("pinned after unpin = %d, want 0", got)
	}

	// delete official member
	w = doJSON(t, r, http.MethodDelete, "/api/delete_member?id="+id, nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("delete member = %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, "/api/get_member_info_by_id?id="+id, nil, false); w.Code != http.StatusNotFound {
		t.Fatalf("member after delete = %d, want 404", w.Code)
	}
}

func TestMemberReject(t *testing.T) {
	r := newTestRouter(t)
	id := submitMember(t, r, "Karim")

	w := doJSON(t, r, http.MethodPatch, "/api/manage_member_req_by_id", gin.H{"id": id, "action": "reject"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("reject = %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, "/api/get_member_info_by_id?id="+id, nil, false); w.Code != http.StatusNotFound {
		t.Fatalf("rejected should not be official, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/get_all_member_reqs?status=rejected", nil, true)
	if got := decode(t, w)["total"].(float64); got != 1 {
		t.Fatalf("rejected total = %v, want 1", got)
	}
}

func TestSubmitMmemberMissingFields(t *testing.T) {
	r := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Incomplete")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/submit_member_req", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete submit = %d, want 400", w.Code)
	}
}

func TestManageValidation(t *testing.T) {
	r := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPatch, "/api/manage_member_req_by_id", gin.H{"id": "x", "action": "promote"}, true); w.Code != http.StatusBadRequest {
		t.Fatalf("bad action = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/manage_member_req_by_id", gin.H{"id": "missing", "action": "approve"}, true); w.Code != http.StatusNotFound {
		t.Fatalf("missing request = %d, want 404", w.Code)
	}
}
