package file

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/adilzh/filedrop/internal/identity"
)

func newTestRouter(t *testing.T) (*gin.Engine, *identity.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idService := identity.NewService(newTokenStore())
	fileService := NewService(newFakeRepo(), newFakeBlobStore(), nil)

	router := gin.New()
	api := router.Group("/v1")

	protected := api.Group("/")
	protected.Use(identity.AuthMiddleware(idService))

	RegisterRoutes(api, protected, fileService, "http://localhost:8080")
	return router, idService
}

func loginToken(t *testing.T, idService *identity.Service, username string) string {
	t.Helper()
	creds, err := idService.Login(context.Background(), username)
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return creds.Token
}

func doUpload(t *testing.T, router *gin.Engine, token, filename string, content []byte) map[string]any {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 from upload, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func TestUploadRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/v1/files", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}

func TestUploadResponseCarriesDownloadURL(t *testing.T) {
	router, idService := newTestRouter(t)
	token := loginToken(t, idService, "alice")

	resp := doUpload(t, router, token, "report.pdf", []byte("%PDF-1.4"))

	key, _ := resp["storage_key"].(string)
	if key == "" {
		t.Fatalf("expected storage_key in response, got %v", resp)
	}
	url, _ := resp["download_url"].(string)
	want := "http://localhost:8080/v1/files/" + key + "/download"
	if url != want {
		t.Fatalf("expected download_url %q, got %q", want, url)
	}
}

func TestDownloadIsPublicAndSetsDisposition(t *testing.T) {
	router, idService := newTestRouter(t)
	token := loginToken(t, idService, "alice")

	payload := []byte("%PDF-1.4 body")
	resp := doUpload(t, router, token, "report.pdf", payload)
	key := resp["storage_key"].(string)

	// no Authorization header at all
	req, _ := http.NewRequest(http.MethodGet, "/v1/files/"+key+"/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from public download, got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), payload) {
		t.Fatalf("downloaded bytes differ from uploaded bytes")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, `"report.pdf"`) {
		t.Fatalf("expected original filename in Content-Disposition, got %q", cd)
	}
}

func TestDownloadPasswordViaQueryAndHeader(t *testing.T) {
	router, idService := newTestRouter(t)
	token := loginToken(t, idService, "alice")

	resp := doUpload(t, router, token, "report.pdf", []byte("%PDF-1.4"))
	key := resp["storage_key"].(string)

	setReq, _ := http.NewRequest(http.MethodPut, "/v1/files/"+key+"/password",
		strings.NewReader(`{"password":"secret"}`))
	setReq.Header.Set("Content-Type", "application/json")
	setReq.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, setReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from set-password, got %d: %s", rr.Code, rr.Body.String())
	}

	req, _ := http.NewRequest(http.MethodGet, "/v1/files/"+key+"/download", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without password, got %d", rr.Code)
	}

	req, _ = http.NewRequest(http.MethodGet, "/v1/files/"+key+"/download?password=secret", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with query password, got %d", rr.Code)
	}

	req, _ = http.NewRequest(http.MethodGet, "/v1/files/"+key+"/download", nil)
	req.Header.Set("X-File-Password", "secret")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with header password, got %d", rr.Code)
	}
}

func TestDeleteByNonOwnerReturnsNotFound(t *testing.T) {
	router, idService := newTestRouter(t)
	aliceToken := loginToken(t, idService, "alice")
	bobToken := loginToken(t, idService, "bob")

	resp := doUpload(t, router, aliceToken, "report.pdf", []byte("%PDF-1.4"))
	key := resp["storage_key"].(string)

	req, _ := http.NewRequest(http.MethodDelete, "/v1/files/"+key, nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// existence is not leaked to non-owners
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner delete, got %d", rr.Code)
	}

	dlReq, _ := http.NewRequest(http.MethodGet, "/v1/files/"+key+"/download", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, dlReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("file should remain retrievable, got %d", rr.Code)
	}
}

func TestDownloadUnknownKeyReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/v1/files/nope.bin/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// tokenStore backs the identity service in handler tests.
type tokenStore struct {
	tokens map[string]string
}

func newTokenStore() *tokenStore {
	return &tokenStore{tokens: make(map[string]string)}
}

func (s *tokenStore) IssueOrGetToken(ctx context.Context, username, candidate string) (string, error) {
	if existing, ok := s.tokens[username]; ok {
		return existing, nil
	}
	s.tokens[username] = candidate
	return candidate, nil
}

func (s *tokenStore) FindUsernameByToken(ctx context.Context, token string) (string, error) {
	for username, stored := range s.tokens {
		if stored == token {
			return username, nil
		}
	}
	return "", identity.ErrInvalidToken
}
