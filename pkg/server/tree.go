package server

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"c4/pkg/identify"
	"c4/pkg/log"
	"c4/pkg/models"
)

func (srv *IDServer) identifyTree(ctx echo.Context) error {
	log.Info().Str("root", srv.root).Msg("Tree identify request")

	collector := &identify.Collector{}
	pass := &identify.Pass{Digester: srv.digester, Workers: srv.workers, Reporter: collector}

	summary, err := pass.Run(ctx.Request().Context(), srv.root)
	if err != nil {
		log.Error().Err(err).Str("root", srv.root).Msg("Failed to identify tree")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to identify tree"})
	}

	files := make([]models.FileID, 0, len(collector.Results))
	for _, res := range collector.Results {
		file := identify.FileID(res)
		if rel, err := filepath.Rel(srv.root, file.Path); err == nil {
			file.Path = filepath.ToSlash(rel)
		}
		files = append(files, file)
	}

	return ctx.JSON(http.StatusOK, models.TreeResponse{
		Root:   srv.root,
		Files:  files,
		Failed: summary.Failed + summary.WalkErrors,
	})
}
