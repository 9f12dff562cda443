package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"c4/pkg/c4"
	"c4/pkg/log"
	"c4/pkg/models"
)

var errOutsideRoot = errors.New("path escapes the served root")

// cacheKey changes whenever the file is rewritten in a way stat can see.
type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

func (srv *IDServer) identifyFile(ctx echo.Context) error {
	rel := ctx.Param("*")
	log.Info().Str("path", rel).Msg("File identify request")

	path, err := srv.resolve(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ctx.JSON(http.StatusNotFound, models.ErrorResponse{Error: "file not found"})
		}
		log.Warn().Err(err).Str("path", rel).Msg("Rejected file path")
		return ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid path"})
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ctx.JSON(http.StatusNotFound, models.ErrorResponse{Error: "file not found"})
		}
		log.Error().Err(err).Str("path", path).Msg("Failed to stat file")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to stat file"})
	}
	if !info.Mode().IsRegular() {
		return ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "not a regular file"})
	}

	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if cached, ok := srv.cache.Get(key); ok {
		log.Debug().Str("path", path).Msg("Serving cached C4 ID")
		return ctx.JSON(http.StatusOK, models.FileID{Path: rel, ID: cached.(c4.ID).String(), Size: info.Size()})
	}

	id, err := c4.Identify(ctx.Request().Context(), srv.digester, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to identify file")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to identify file"})
	}
	srv.cache.Add(key, id)

	return ctx.JSON(http.StatusOK, models.FileID{Path: rel, ID: id.String(), Size: info.Size()})
}

// resolve maps a request path onto the served root, following symlinks, and
// refuses anything that ends up outside it.
func (srv *IDServer) resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(filepath.FromSlash(rel), string(filepath.Separator))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", errOutsideRoot
	}

	root, err := filepath.EvalSymlinks(srv.root)
	if err != nil {
		return "", err
	}
	path, err := filepath.EvalSymlinks(filepath.Join(root, rel))
	if err != nil {
		return "", err
	}

	inside, err := filepath.Rel(root, path)
	if err != nil || !filepath.IsLocal(inside) {
		return "", errOutsideRoot
	}
	return path, nil
}
