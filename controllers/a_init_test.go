package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"catalogadmin/catalog"
	"catalogadmin/editcache"
	"catalogadmin/images"
	"catalogadmin/lookup"
	"catalogadmin/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parsePayload(p interface{}) *bytes.Buffer {
	data, _ := json.Marshal(p)
	return bytes.NewBuffer(data)
}

type row = map[string]interface{}

// fakeBackend is an in-memory catalog backend speaking the real endpoint layout.
type fakeBackend struct {
	mu   sync.Mutex
	rows map[string][]row
	seq  int
	fail map[string]int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	b := &fakeBackend{rows: map[string][]row{}, fail: map[string]int{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) seed(resource string, rows ...row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[resource] = append([]row{}, rows...)
}

func (b *fakeBackend) failWith(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[method+" "+path] = status
}

func (b *fakeBackend) clearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = map[string]int{}
}

// field reads one stored value, or nil when the row is missing.
func (b *fakeBackend) field(resource, id, key string) interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(resource, id)
	if i < 0 {
		return nil
	}
	return b.rows[resource][i][key]
}

func (b *fakeBackend) find(resource, id string) int {
	for i, r := range b.rows[resource] {
		if r["_id"] == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if status, ok := b.fail[r.Method+" "+r.URL.Path]; ok {
		writeJSON(w, status, gin.H{"message": "forced failure"})
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	if len(parts) < 2 {
		writeJSON(w, http.StatusNotFound, gin.H{"message": "unknown route"})
		return
	}
	resource, action := parts[0], parts[1]
	id := ""
	if len(parts) > 2 {
		id = parts[2]
	}

	switch action {
	case "get-all-" + resource:
		writeJSON(w, http.StatusOK, gin.H{"data": b.rows[resource]})

	case "get-all":
		name := strings.ToLower(r.URL.Query().Get("filterName"))
		out := []row{}
		for _, item := range b.rows[resource] {
			if strings.Contains(strings.ToLower(fmt.Sprint(item["name"])), name) {
				out = append(out, item)
			}
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		writeJSON(w, http.StatusOK, gin.H{"data": out, "total": len(out), "page": page, "pageSize": size})

	case "get-" + resource:
		i := b.find(resource, id)
		if i < 0 {
			writeJSON(w, http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		writeJSON(w, http.StatusOK, gin.H{"data": b.rows[resource][i]})

	case "create-" + resource:
		var item row
		json.NewDecoder(r.Body).Decode(&item)
		if len(fmt.Sprint(item["name"])) < 3 {
			writeJSON(w, http.StatusUnprocessableEntity, gin.H{"message": "name too short"})
			return
		}
		b.seq++
		item["_id"] = fmt.Sprintf("%s-%d", resource, b.seq)
		b.rows[resource] = append(b.rows[resource], item)
		writeJSON(w, http.StatusCreated, gin.H{"data": item})

	case "update-" + resource:
		i := b.find(resource, id)
		if i < 0 {
			writeJSON(w, http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		var item row
		json.NewDecoder(r.Body).Decode(&item)
		item["_id"] = id
		b.rows[resource][i] = item
		writeJSON(w, http.StatusOK, item)

	case "delete-" + resource:
		i := b.find(resource, id)
		if i < 0 {
			writeJSON(w, http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		b.rows[resource] = append(b.rows[resource][:i], b.rows[resource][i+1:]...)
		writeJSON(w, http.StatusOK, gin.H{"message": "deleted"})

	default:
		writeJSON(w, http.StatusNotFound, gin.H{"message": "unknown route"})
	}
}

func newTestAPI(t *testing.T, backendURL string) *API {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := catalog.NewClient(backendURL, 2*time.Second, logger)
	if err != nil {
		t.Fatal(err)
	}

	api := NewAPI()
	api.Log = logger
	api.Feed = editcache.NewFeed(10)
	api.Names = lookup.New(nil, 0, logger)
	api.Images = images.NewUploader(images.NewMemory(), 1024, "/api/images", logger)

	ecfg := editcache.Config{Logger: logger, Notifier: api.Feed}
	categories := catalog.NewCategories(client)
	brands := catalog.NewBrands(client)
	products := catalog.NewProducts(client)

	api.Categories = NewEntityHandler(editcache.New[models.Category](models.ResourceCategory, categories, ecfg), categories, "categories")
	api.Brands = NewEntityHandler(editcache.New[models.Brand](models.ResourceBrand, brands, ecfg), brands, "brands")
	api.Products = NewEntityHandler(editcache.New[models.Product](models.ResourceProduct, products, ecfg), products, "products")

	api.TrackNames()
	api.ProductsView()
	return api
}

// serve runs handler on a fresh test context.
func serve(handler gin.HandlerFunc, method, target string, body io.Reader, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, body)
	c.Request = req
	c.Params = params
	handler(c)
	return w
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}
