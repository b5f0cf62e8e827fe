package handler

import (
	"net/http"

	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/service"
)

// GetThemeHandler returns the saved theme; "" means none was chosen.
func GetThemeHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme, err := manager.GetPreferences().Theme()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.ThemeData{Theme: theme})
	}
}

// SetThemeHandler saves the theme.
func SetThemeHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ThemeData
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		if err := manager.GetPreferences().SetTheme(req.Theme); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, req)
	}
}
