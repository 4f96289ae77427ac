package testutil

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Failure makes FakeBackend answer matching requests with an error. Matching
// requests are counted starting at 1; with Nth set only that request fails,
// otherwise every match does.
type Failure struct {
	Method string
	Path   string
	Nth    int
	Status int
	Body   any

	count int
}

func (fl *Failure) match(r *http.Request) bool {
	if fl.Method != "" && fl.Method != r.Method {
		return false
	}
	return strings.HasPrefix(r.URL.Path, fl.Path)
}

// Fail registers a failure. Later registrations are checked after earlier ones.
func (f *FakeBackend) Fail(fl Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl.Status == 0 {
		fl.Status = http.StatusInternalServerError
	}
	if fl.Body == nil {
		fl.Body = gin.H{"detail": "injected failure"}
	}
	f.failures = append(f.failures, &fl)
}

// FailDelete makes the delete of one record path fail with status.
func (f *FakeBackend) FailDelete(itemPath string, status int) {
	f.Fail(Failure{Method: http.MethodDelete, Path: itemPath, Status: status})
}

func (f *FakeBackend) injectFailures(c *gin.Context) {
	f.mu.Lock()
	var hit *Failure
	for _, fl := range f.failures {
		if !fl.match(c.Request) {
			continue
		}
		fl.count++
		if fl.Nth == 0 || fl.count == fl.Nth {
			hit = fl
			break
		}
	}
	f.mu.Unlock()

	if hit != nil {
		c.AbortWithStatusJSON(hit.Status, hit.Body)
		return
	}
	c.Next()
}
