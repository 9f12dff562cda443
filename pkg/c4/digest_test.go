package c4

import (
	"bytes"
	"context"
	"crypto/sha512"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DigestTestSuite tests the streaming SHA-512 digester
type DigestTestSuite struct {
	suite.Suite
	tempDir string
	ctx     context.Context
}

// SetupTest creates a fresh temp directory for each test
func (s *DigestTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "c4-digest-test-*")
	s.Require().NoError(err)
	s.ctx = context.Background()
}

// TearDownTest removes the temp directory
func (s *DigestTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *DigestTestSuite) writeFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.WriteFile(path, content, 0o644))
	return path
}

// TestNewDigesterDefaults tests block size fallback
func (s *DigestTestSuite) TestNewDigesterDefaults() {
	s.Equal(DefaultBlockSize, NewDigester(0).BlockSize())
	s.Equal(DefaultBlockSize, NewDigester(-5).BlockSize())
	s.Equal(DefaultBlockSize, Digester{}.BlockSize())
	s.Equal(4096, NewDigester(4096).BlockSize())
	s.Equal(100*1024*1024, DefaultBlockSize)
}

// TestDigestMatchesSHA512 tests the digest against crypto/sha512
func (s *DigestTestSuite) TestDigestMatchesSHA512() {
	content := []byte("the quick brown fox jumps over the lazy dog")
	path := s.writeFile("fox.txt", content)

	digest, err := NewDigester(0).Digest(s.ctx, path)
	s.Require().NoError(err)
	s.Equal(Digest(sha512.Sum512(content)), digest)
}

// TestDigestIndependentOfBlockSize tests that block size never changes the result
func (s *DigestTestSuite) TestDigestIndependentOfBlockSize() {
	content := bytes.Repeat([]byte("0123456789abcdef"), 1000)
	content = append(content, 'x')
	path := s.writeFile("blocks.bin", content)
	want := Digest(sha512.Sum512(content))

	for _, blockSize := range []int{1, 3, 7, 64, 4096, len(content), len(content) + 1, 0} {
		digest, err := NewDigester(blockSize).Digest(s.ctx, path)
		s.Require().NoError(err, "block size %d", blockSize)
		s.Equal(want, digest, "block size %d", blockSize)
	}
}

// TestDigestEmptyFile tests that an empty file yields the SHA-512 of empty input
func (s *DigestTestSuite) TestDigestEmptyFile() {
	path := s.writeFile("empty", nil)

	digest, err := NewDigester(0).Digest(s.ctx, path)
	s.Require().NoError(err)
	s.Equal(Digest(sha512.Sum512(nil)), digest)
	s.Equal(
		ID("c459CSJESBh38BxDwwxNFKTXE4cC9HASGe3bhtN6z58GbwLqpCyRaKyZSvBAvTdF5NpSTPdUMH4hHRJ75geLsB1Sfs"),
		digest.ID(),
	)
}

// TestDigestDeterministic tests repeated calls over identical bytes
func (s *DigestTestSuite) TestDigestDeterministic() {
	a := s.writeFile("a", []byte("same bytes"))
	b := s.writeFile("b", []byte("same bytes"))
	d := NewDigester(2)

	first, err := d.Digest(s.ctx, a)
	s.Require().NoError(err)
	second, err := d.Digest(s.ctx, a)
	s.Require().NoError(err)
	other, err := d.Digest(s.ctx, b)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(first, other)
	s.Equal(Encode(first), Encode(other))
}

// TestDigestMissingFile tests ReadError for a path that does not exist
func (s *DigestTestSuite) TestDigestMissingFile() {
	path := filepath.Join(s.tempDir, "missing.txt")

	_, err := NewDigester(0).Digest(s.ctx, path)
	s.Require().Error(err)

	var readErr ReadError
	s.Require().True(errors.As(err, &readErr))
	s.Equal(path, readErr.Path)
	s.True(errors.Is(err, os.ErrNotExist))
}

// TestDigestDirectory tests ReadError for a directory
func (s *DigestTestSuite) TestDigestDirectory() {
	_, err := NewDigester(0).Digest(s.ctx, s.tempDir)

	var readErr ReadError
	s.Require().True(errors.As(err, &readErr))
	s.Equal(s.tempDir, readErr.Path)
	s.Contains(err.Error(), "is a directory")
}

// TestDigestCanceled tests that a canceled context aborts hashing
func (s *DigestTestSuite) TestDigestCanceled() {
	path := s.writeFile("data", []byte(strings.Repeat("z", 100)))
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := NewDigester(1).Digest(ctx, path)
	s.Require().Error(err)
	s.True(errors.Is(err, context.Canceled))

	var readErr ReadError
	s.False(errors.As(err, &readErr))
}

// failingReader yields some bytes and then fails
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, io.ErrClosedPipe
	}
	r.sent = true
	return copy(p, "partial"), nil
}

// TestDigestReader tests hashing an arbitrary reader
func (s *DigestTestSuite) TestDigestReader() {
	content := bytes.Repeat([]byte{0xab}, 3*readerBlockSize+17)

	digest, err := NewDigester(0).DigestReader(s.ctx, bytes.NewReader(content))
	s.Require().NoError(err)
	s.Equal(Digest(sha512.Sum512(content)), digest)

	_, err = NewDigester(4).DigestReader(s.ctx, &failingReader{})
	s.True(errors.Is(err, io.ErrClosedPipe))
}

// TestIdentify tests digest plus encode in one call
func (s *DigestTestSuite) TestIdentify() {
	path := s.writeFile("hello.txt", []byte("hello"))

	id, err := Identify(s.ctx, NewDigester(0), path)
	s.Require().NoError(err)
	s.Equal(
		ID("c447fL3biyp62765Jmyih4L28GRdm7rZAJ9ctLJ4f4FMVYdxwxZ4vEMj2MxqGfVqFxeDBTewxbxvkdPkN6wgnaEjCT"),
		id,
	)

	_, err = Identify(s.ctx, NewDigester(0), filepath.Join(s.tempDir, "nope"))
	var readErr ReadError
	s.True(errors.As(err, &readErr))
}

// TestDigestString tests the hex rendering
func (s *DigestTestSuite) TestDigestString() {
	var d Digest
	d[0] = 0xca
	d[DigestSize-1] = 0xfe

	str := d.String()
	s.Len(str, 2*DigestSize)
	s.True(strings.HasPrefix(str, "ca"))
	s.True(strings.HasSuffix(str, "fe"))
}

func TestDigestSuite(t *testing.T) {
	suite.Run(t, new(DigestTestSuite))
}
