package server

import (
	"bytes"
	"crypto/sha512"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"c4/pkg/c4"
	"c4/pkg/models"
)

const emptyID = "c459CSJESBh38BxDwwxNFKTXE4cC9HASGe3bhtN6z58GbwLqpCyRaKyZSvBAvTdF5NpSTPdUMH4hHRJ75geLsB1Sfs"

// UploadTestSuite tests identification of uploaded bodies
type UploadTestSuite struct {
	suite.Suite
	server  *IDServer
	tempDir string
}

// SetupSuite runs once before all tests
func (s *UploadTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "upload-test-*")
	s.Require().NoError(err)
}

// TearDownSuite runs once after all tests
func (s *UploadTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test
func (s *UploadTestSuite) SetupTest() {
	var err error
	s.server, err = NewIDServer(s.tempDir, "test-v1.0.0", c4.NewDigester(1024), 0, 0)
	s.Require().NoError(err)
	s.server.setupRoutes()
}

func (s *UploadTestSuite) upload(field, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/id", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	c := s.server.echo.NewContext(req, rec)

	err = s.server.identifyUpload(c)
	s.NoError(err)
	return rec
}

// TestIdentifyUploadSuccess tests a small upload
func (s *UploadTestSuite) TestIdentifyUploadSuccess() {
	rec := s.upload("file", "hello.txt", []byte("hello"))
	s.Equal(http.StatusOK, rec.Code)

	var response models.IDResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal(models.IDResponse{ID: helloID, Size: 5}, response)
}

// TestIdentifyUploadEmptyFile tests the identifier of empty content
func (s *UploadTestSuite) TestIdentifyUploadEmptyFile() {
	rec := s.upload("file", "empty.txt", nil)
	s.Equal(http.StatusOK, rec.Code)

	var response models.IDResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal(emptyID, response.ID)
	s.Zero(response.Size)
}

// TestIdentifyUploadLargeFile tests content spanning many digester blocks
func (s *UploadTestSuite) TestIdentifyUploadLargeFile() {
	content := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	rec := s.upload("file", "large.bin", content)
	s.Equal(http.StatusOK, rec.Code)

	var response models.IDResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal(c4.Encode(sha512.Sum512(content)).String(), response.ID)
	s.Equal(int64(len(content)), response.Size)
}

// TestIdentifyUploadMissingFile tests a form without the file field
func (s *UploadTestSuite) TestIdentifyUploadMissingFile() {
	rec := s.upload("notfile", "x.txt", []byte("some data"))
	s.Equal(http.StatusBadRequest, rec.Code)

	var response models.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal("file parameter is required", response.Error)
}

// TestIdentifyUploadInvalidMultipart tests a malformed body
func (s *UploadTestSuite) TestIdentifyUploadInvalidMultipart() {
	req := httptest.NewRequest(http.MethodPost, "/id", strings.NewReader("invalid multipart data"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=invalid")

	rec := httptest.NewRecorder()
	c := s.server.echo.NewContext(req, rec)

	err := s.server.identifyUpload(c)
	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestIdentifyUploadThroughRouter tests the route end to end
func (s *UploadTestSuite) TestIdentifyUploadThroughRouter() {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "world.txt")
	s.Require().NoError(err)
	_, err = part.Write([]byte("world"))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/id", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	s.server.echo.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), worldID)
}

func TestUploadSuite(t *testing.T) {
	suite.Run(t, new(UploadTestSuite))
}
