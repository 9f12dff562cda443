package server

import (
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"c4/pkg/log"
	"c4/pkg/models"
)

func (srv *IDServer) getStatus(ctx echo.Context) error {
	storage, err := getStorageInfo(srv.root)
	if err != nil {
		log.Error().Err(err).Str("root", srv.root).Msg("Failed to collect storage information")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to collect storage information"})
	}

	uptime := time.Since(srv.started)
	return ctx.JSON(http.StatusOK, models.StatusResponse{
		Version:       srv.version,
		Root:          srv.root,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		CachedIDs:     srv.cache.Len(),
		Storage:       *storage,
	})
}

// getStorageInfo gets disk usage information for the filesystem holding path.
func getStorageInfo(path string) (*models.StorageInfo, error) {
	var stat syscall.Statfs_t
	err := syscall.Statfs(path, &stat)
	if err != nil {
		return nil, err
	}

	blockSize := uint64(stat.Bsize) // #nosec G115 - syscall values are system dependent

	total := stat.Blocks * blockSize
	available := stat.Bavail * blockSize

	return &models.StorageInfo{
		Total:     total,
		Used:      total - available,
		Available: available,
	}, nil
}

// formatUptime renders a duration as days, hours and minutes.
func formatUptime(duration time.Duration) string {
	const hoursInDay = 24
	const minutesInHour = 60
	days := int(duration.Hours()) / hoursInDay
	hours := int(duration.Hours()) % hoursInDay
	minutes := int(duration.Minutes()) % minutesInHour

	switch {
	case days > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}
