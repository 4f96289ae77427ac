package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
)

// FakeToken is the token FakeBackend accepts.
const FakeToken = "test-token"

// Upload is one multipart upload received by FakeBackend.
type Upload struct {
	Resource string
	Filename string
	Fields   map[string]string
	Data     []byte
}

// FakeBackend is an in-memory stand-in for the plant-maintenance REST API.
// Records are stored per resource exactly as they were posted.
type FakeBackend struct {
	Server *httptest.Server

	mu         sync.Mutex
	reference  *domain.ReferenceData
	profile    *domain.UserProfile
	users      []string
	records    map[string][]map[string]any
	nextID     int64
	uploads    []Upload
	exports    []map[string]string
	listCalls  map[string]int
	lastQuery  url.Values
	uploadResp api.UploadResult
	failures   []*Failure
}

// NewFakeBackend starts a fake backend holding ReferenceData and closes it
// when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		reference:  ReferenceData(),
		profile:    AdminProfile("admin"),
		users:      []string{"admin", "alice", "bob"},
		records:    make(map[string][]map[string]any),
		nextID:     1000,
		listCalls:  make(map[string]int),
		uploadResp: api.UploadResult{Message: "upload accepted", Errors: []string{}},
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns an api.Config pointing at the fake.
func (f *FakeBackend) Config() api.Config {
	cfg := api.DefaultConfig()
	cfg.BaseURL = f.Server.URL
	cfg.Token = FakeToken
	cfg.MaxRetries = 0
	return cfg
}

func (f *FakeBackend) routes() *gin.Engine {
	r := gin.New()
	r.Use(f.requireToken, f.injectFailures)

	r.GET("/api/maintenance/config/get-config-data/", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, f.reference)
	})
	profile := func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusOK, f.profile)
	}
	r.GET("/api/v1/my-profile/", profile)
	r.GET("/api/user-management/user-permissions/", profile)
	r.GET("/api/user-management/list-users/", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]gin.H, len(f.users))
		for i, u := range f.users {
			out[i] = gin.H{"id": i + 1, "username": u}
		}
		c.JSON(http.StatusOK, out)
	})

	for _, name := range []string{api.ResourceShiftRecords, api.ResourceAssets, api.ResourceTaskPlans, api.ResourceManuals} {
		res, err := api.ResourceFor(name)
		if err != nil {
			panic(err)
		}
		r.GET(res.Path, f.list(res))
		r.POST(res.Path, f.create(res))
		r.PUT(res.Path+":id/", f.update(res))
		r.DELETE(res.Path+":id/", f.remove(res))
		if res.HasSpreadsheet() {
			r.POST(res.UploadPath, f.upload(res))
			r.POST(res.ExportPath, f.export(res))
			r.GET(res.TemplatePath, func(c *gin.Context) {
				c.Data(http.StatusOK, "application/octet-stream", []byte("template:"+res.Name))
			})
		}
	}
	return r
}

func (f *FakeBackend) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "Token "+FakeToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
		return
	}
	c.Next()
}

func (f *FakeBackend) list(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listCalls[res.Name]++
		f.lastQuery = c.Request.URL.Query()

		out := make([]map[string]any, 0, len(f.records[res.Name]))
		for _, rec := range f.records[res.Name] {
			if f.matches(rec, f.lastQuery) {
				out = append(out, rec)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// matches compares query values with stored values. Stored foreign keys are
// ids, so a code in the query is also tried against the id's code.
func (f *FakeBackend) matches(rec map[string]any, query url.Values) bool {
	for key := range query {
		want := query.Get(key)
		got := fmt.Sprint(rec[key])
		if got == want || f.codeOf(key, got) == want {
			continue
		}
		return false
	}
	return true
}

func (f *FakeBackend) codeOf(key, id string) string {
	switch key {
	case domain.KeyPhase:
		for _, p := range f.reference.Phases {
			if strconv.FormatInt(p.ID, 10) == id {
				return p.Code
			}
		}
	case domain.KeyShiftType:
		for _, s := range f.reference.ShiftTypes {
			if strconv.FormatInt(s.ID, 10) == id {
				return s.Code
			}
		}
	}
	return ""
}

func (f *FakeBackend) create(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec map[string]any
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		rec[domain.KeyID] = f.nextID
		if res.Name == api.ResourceShiftRecords {
			rec[domain.KeySerialNumber] = len(f.records[res.Name]) + 1
			if start, ok := rec["start_datetime"].(string); ok && len(start) >= 7 {
				rec[domain.KeyMonth] = start[:7]
			}
		}
		f.records[res.Name] = append(f.records[res.Name], rec)
		c.JSON(http.StatusCreated, rec)
	}
}

func (f *FakeBackend) update(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec map[string]any
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		i := f.indexOf(res.Name, c.Param("id"))
		if i < 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		rec[domain.KeyID] = f.records[res.Name][i][domain.KeyID]
		f.records[res.Name][i] = rec
		c.JSON(http.StatusOK, rec)
	}
}

func (f *FakeBackend) remove(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		i := f.indexOf(res.Name, c.Param("id"))
		if i < 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		f.records[res.Name] = append(f.records[res.Name][:i], f.records[res.Name][i+1:]...)
		c.Status(http.StatusNoContent)
	}
}

func (f *FakeBackend) indexOf(resource, id string) int {
	for i, rec := range f.records[resource] {
		if fmt.Sprint(rec[domain.KeyID]) == id {
			return i
		}
	}
	return -1
}

func (f *FakeBackend) upload(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "没有上传文件"})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		fields := make(map[string]string)
		if form, err := c.MultipartForm(); err == nil {
			for k, v := range form.Value {
				if len(v) > 0 {
					fields[k] = v[0]
				}
			}
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.uploads = append(f.uploads, Upload{Resource: res.Name, Filename: fh.Filename, Fields: fields, Data: data})
		c.JSON(http.StatusOK, f.uploadResp)
	}
}

func (f *FakeBackend) export(res api.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.exports = append(f.exports, body)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("export:"+res.Name))
	}
}

// SetProfile replaces the profile served to the client. nil makes the
// profile endpoints answer 404.
func (f *FakeBackend) SetProfile(p *domain.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
}

// SetUploadResponse replaces the answer to uploads.
func (f *FakeBackend) SetUploadResponse(r api.UploadResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadResp = r
}

// Seed stores records for resource as if they had been posted, assigning
// ids where missing, and returns the ids in order.
func (f *FakeBackend) Seed(resource string, records ...map[string]any) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := rec[domain.KeyID]; !ok {
			f.nextID++
			rec[domain.KeyID] = f.nextID
		}
		f.records[resource] = append(f.records[resource], rec)
		ids = append(ids, fmt.Sprint(rec[domain.KeyID]))
	}
	return ids
}

// Records returns a copy of what is stored for resource.
func (f *FakeBackend) Records(resource string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.records[resource]))
	for i, rec := range f.records[resource] {
		cp := make(map[string]any, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// ListCalls counts the list requests served for resource.
func (f *FakeBackend) ListCalls(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[resource]
}

// LastQuery is the query string of the most recent list request.
func (f *FakeBackend) LastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *FakeBackend) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

func (f *FakeBackend) Exports() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.exports...)
}
