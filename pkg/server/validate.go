package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"c4/pkg/c4"
	"c4/pkg/log"
	"c4/pkg/models"
)

func (srv *IDServer) validateID(ctx echo.Context) error {
	raw := ctx.Param("id")

	id, err := c4.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Str("id", raw).Msg("Rejected C4 ID")
		return ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	}

	return ctx.JSON(http.StatusOK, models.ValidateResponse{ID: id.String(), Valid: true})
}
