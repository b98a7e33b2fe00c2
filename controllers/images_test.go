package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalogadmin/images"
	"catalogadmin/models"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "upload.bin")
		assert.Equal(t, nil, err)
		_, err = part.Write(data)
		assert.Equal(t, nil, err)
	}
	assert.Equal(t, nil, mw.Close())
	return body, mw.FormDataContentType()
}

func upload(api *API, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest("POST", "", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	api.UploadImage(c)
	return w
}

func TestUploadImage(t *testing.T) {
	_, srv := newFakeBackend(t)
	api := newTestAPI(t, srv.URL)
	var genericResp GenericResponse

	// missing file (400)
	body, ct := multipartBody(t, "", nil)
	w := upload(api, body, ct)
	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing-file", genericResp.Message)

	// not an image (422)
	body, ct = multipartBody(t, "file", []byte("just some text"))
	w = upload(api, body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// too large (413)
	body, ct = multipartBody(t, "file", append(append([]byte{}, pngHeader...), make([]byte, 2048)...))
	w = upload(api, body, ct)
	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "image-too-large", genericResp.Message)

	// 201
	body, ct = multipartBody(t, "file", pngHeader)
	w = upload(api, body, ct)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.ImageUpload
	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, int64(len(pngHeader)), resp.Size)
	assert.Equal(t, true, strings.HasPrefix(resp.Key, "products/"))
	assert.Equal(t, "/api/images/"+resp.Key, resp.URL)
}

func TestGetAndDeleteImage(t *testing.T) {
	_, srv := newFakeBackend(t)
	api := newTestAPI(t, srv.URL)

	body, ct := multipartBody(t, "file", pngHeader)
	w := upload(api, body, ct)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.ImageUpload
	err := json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)
	key := gin.Param{Key: "key", Value: "/" + resp.Key}

	// 200
	w = serve(api.GetImage, "GET", "", nil, key)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.DeepEqual(t, pngHeader, w.Body.Bytes())

	// delete (200)
	w = serve(api.DeleteImage, "DELETE", "", nil, key)
	assert.Equal(t, http.StatusOK, w.Code)

	// gone (404)
	w = serve(api.GetImage, "GET", "", nil, key)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(api.DeleteImage, "DELETE", "", nil, key)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetImageSidecarIsNotServed(t *testing.T) {
	_, srv := newFakeBackend(t)
	api := newTestAPI(t, srv.URL)

	store, err := images.NewFilesystem(t.TempDir())
	assert.Equal(t, nil, err)
	api.Images = images.NewUploader(store, 1024, "/api/images", api.Log)

	body, ct := multipartBody(t, "file", pngHeader)
	w := upload(api, body, ct)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.ImageUpload
	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)

	// 200
	w = serve(api.GetImage, "GET", "", nil, gin.Param{Key: "key", Value: "/" + resp.Key})
	assert.Equal(t, http.StatusOK, w.Code)

	// sidecar (404)
	w = serve(api.GetImage, "GET", "", nil, gin.Param{Key: "key", Value: "/" + resp.Key + ".meta"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// escaping key (404)
	w = serve(api.GetImage, "GET", "", nil, gin.Param{Key: "key", Value: "/../secret"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(api.DeleteImage, "DELETE", "", nil, gin.Param{Key: "key", Value: "/" + resp.Key + ".meta"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
