package c4

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"os"

	"c4/pkg/log"
)

const (
	// DigestSize is the length of a SHA-512 digest in bytes.
	DigestSize = sha512.Size
	// DefaultBlockSize is the read block size used when none is configured (100 MiB).
	DefaultBlockSize = 100 * 1024 * 1024

	readerBlockSize = 1024 * 1024
	percent         = 100
)

var errIsDirectory = errors.New("is a directory")

// Digest is the SHA-512 of a file's complete byte stream.
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ID encodes the digest as a C4 ID.
func (d Digest) ID() ID {
	return Encode(d)
}

// Digester hashes files in fixed-size blocks. The zero value uses DefaultBlockSize.
// A Digester holds no hash state; every call starts from a fresh SHA-512.
type Digester struct {
	blockSize int
}

// NewDigester returns a Digester reading blockSize bytes at a time.
// Non-positive sizes fall back to DefaultBlockSize.
func NewDigester(blockSize int) Digester {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return Digester{blockSize: blockSize}
}

// BlockSize returns the configured read block size.
func (d Digester) BlockSize() int {
	if d.blockSize <= 0 {
		return DefaultBlockSize
	}
	return d.blockSize
}

// Digest hashes the regular file at path.
// Open, stat and read failures are returned as ReadError; cancellation returns ctx.Err().
func (d Digester) Digest(ctx context.Context, path string) (Digest, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the tree scanner
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open file for hashing")
		return Digest{}, ReadError{Path: path, Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to close hashed file")
		}
	}()

	info, err := f.Stat()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to stat file for hashing")
		return Digest{}, ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return Digest{}, ReadError{Path: path, Err: errIsDirectory}
	}

	blockSize := d.BlockSize()
	bufSize := blockSize
	if info.Size() < int64(blockSize) {
		bufSize = int(info.Size()) + 1
	}
	blocks := info.Size()/int64(blockSize) + 1

	digest, err := fold(ctx, f, make([]byte, bufSize), path, blocks)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read file for hashing")
		return Digest{}, ReadError{Path: path, Err: err}
	}
	return digest, err
}

// DigestReader hashes everything r yields until EOF.
func (d Digester) DigestReader(ctx context.Context, r io.Reader) (Digest, error) {
	bufSize := d.BlockSize()
	if bufSize > readerBlockSize {
		bufSize = readerBlockSize
	}
	return fold(ctx, r, make([]byte, bufSize), "", 0)
}

// fold feeds r into a fresh SHA-512 one buffer at a time.
// blocks is the expected block count, used only for progress logging.
func fold(ctx context.Context, r io.Reader, buf []byte, path string, blocks int64) (Digest, error) {
	hasher := sha512.New()

	for block := int64(1); ; block++ {
		if err := ctx.Err(); err != nil {
			return Digest{}, err
		}

		n, err := io.ReadFull(r, buf)
		if n > 0 {
			// hash.Hash.Write never returns an error.
			_, _ = hasher.Write(buf[:n])
			if blocks > 1 {
				log.Debug().
					Str("path", path).
					Int64("block", block).
					Int64("blocks", blocks).
					Int64("progress", percent*block/blocks).
					Msg("Hashed block")
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Digest{}, err
		}
	}

	var digest Digest
	hasher.Sum(digest[:0])
	return digest, nil
}

// Identify computes the C4 ID of the file at path.
func Identify(ctx context.Context, d Digester, path string) (ID, error) {
	digest, err := d.Digest(ctx, path)
	if err != nil {
		return "", err
	}
	return Encode(digest), nil
}
