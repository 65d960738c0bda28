package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/noah-isme/secure-print-api/internal/middleware"
	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/service"
)

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// testClaimsMiddleware injects claims built from the X-Test-Role header so
// handler tests skip real token verification.
func testClaimsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:   "user-1",
				Email:    "user@example.com",
				FullName: "Test User",
				Role:     models.UserRole(role),
			})
		}
		c.Next()
	}
}

type fileRepoStub struct {
	file  *models.StoredFile
	files []models.StoredFile
	total int
	err   error
}

func (s *fileRepoStub) FindByID(context.Context, string) (*models.StoredFile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.file, nil
}

func (s *fileRepoStub) List(context.Context, models.FileFilter) ([]models.StoredFile, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.files, s.total, nil
}

type printLogRepoStub struct {
	entries []models.PrintLogDetail
	created []*models.PrintLogEntry
	total   int
	err     error
}

func (s *printLogRepoStub) Create(_ context.Context, entry *models.PrintLogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, entry)
	return nil
}

func (s *printLogRepoStub) List(context.Context, models.PrintLogFilter) ([]models.PrintLogDetail, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.entries, s.total, nil
}

func (s *printLogRepoStub) ListByFile(context.Context, string) ([]models.PrintLogDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func (s *printLogRepoStub) CountByFile(context.Context, string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.total, nil
}

func buildPrintRouter(fileRepo *fileRepoStub, logRepo *printLogRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	files := service.NewFileService(fileRepo, nil, 0, nil)
	logs := service.NewPrintLogService(logRepo, nil, nil)
	h := NewPrintHandler(files, logs)

	router := gin.New()
	router.Use(testClaimsMiddleware())
	router.GET("/print/:fileId", h.GetFile)
	router.POST("/print/log/:fileId", h.LogPrint)
	return router
}

func TestPrintHandlerGetFile(t *testing.T) {
	t.Run("returns descriptor", func(t *testing.T) {
		router := buildPrintRouter(&fileRepoStub{file: &models.StoredFile{
			ID:       "file-1",
			Filename: "contract.pdf",
			Path:     "https://files.internal/contract.pdf",
			MimeType: "application/pdf",
		}}, &printLogRepoStub{})

		req, _ := http.NewRequest(http.MethodGet, "/print/file-1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleUser))
		resp := performRequest(router, req)

		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"success":true`)
		require.Contains(t, resp.Body.String(), `"filename":"contract.pdf"`)
		require.Contains(t, resp.Body.String(), `"url":"https://files.internal/contract.pdf"`)
	})

	t.Run("missing file", func(t *testing.T) {
		router := buildPrintRouter(&fileRepoStub{err: sql.ErrNoRows}, &printLogRepoStub{})

		req, _ := http.NewRequest(http.MethodGet, "/print/nope", nil)
		req.Header.Set("X-Test-Role", string(models.RoleUser))
		resp := performRequest(router, req)

		require.Equal(t, http.StatusNotFound, resp.Code)
		require.Contains(t, resp.Body.String(), `"success":false`)
	})
}

func TestPrintHandlerLogPrint(t *testing.T) {
	file := &models.StoredFile{ID: "file-1", Filename: "contract.pdf", Path: "/contract.pdf", MimeType: "application/pdf"}

	t.Run("records entry", func(t *testing.T) {
		logRepo := &printLogRepoStub{}
		router := buildPrintRouter(&fileRepoStub{file: file}, logRepo)

		req, _ := http.NewRequest(http.MethodPost, "/print/log/file-1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleUser))
		req.Header.Set("User-Agent", "print-client/1.0")
		resp := performRequest(router, req)

		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "Print event logged")
		require.Len(t, logRepo.created, 1)
		require.Equal(t, "file-1", logRepo.created[0].FileID)
		require.Equal(t, "user-1", logRepo.created[0].UserID)
		require.Equal(t, "contract.pdf", logRepo.created[0].Filename)
		require.Equal(t, "print-client/1.0", logRepo.created[0].UserAgent)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		router := buildPrintRouter(&fileRepoStub{file: file}, &printLogRepoStub{})

		req, _ := http.NewRequest(http.MethodPost, "/print/log/file-1", nil)
		resp := performRequest(router, req)

		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("write failure stays visible", func(t *testing.T) {
		router := buildPrintRouter(&fileRepoStub{file: file}, &printLogRepoStub{err: errors.New("disk full")})

		req, _ := http.NewRequest(http.MethodPost, "/print/log/file-1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleUser))
		resp := performRequest(router, req)

		require.Equal(t, http.StatusInternalServerError, resp.Code)
		require.Contains(t, resp.Body.String(), "Failed to log print event")
	})
}
