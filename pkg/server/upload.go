package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"c4/pkg/log"
	"c4/pkg/models"
)

func (srv *IDServer) identifyUpload(ctx echo.Context) error {
	log.Info().Msg("Identify upload request received")

	file, err := ctx.FormFile("file")
	if err != nil {
		log.Error().Err(err).Msg("File parameter is required")
		return ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file parameter is required"})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open uploaded file"})
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close uploaded file")
		}
	}()

	digest, err := srv.digester.DigestReader(ctx.Request().Context(), src)
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("Failed to identify uploaded file")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to identify uploaded file"})
	}

	id := digest.ID()
	log.Info().Str("filename", file.Filename).Str("id", id.String()).Int64("size", file.Size).Msg("Identified upload")
	return ctx.JSON(http.StatusOK, models.IDResponse{ID: id.String(), Size: file.Size})
}
