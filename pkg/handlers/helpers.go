package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"freshcast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// HealthCheck ヘルスチェックエンドポイント
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusForError サービス層のエラーをHTTPステータスに対応付ける
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownProduct):
		return http.StatusNotFound
	case errors.Is(err, services.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnsupportedHorizon):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidServiceLevel):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAdvisoryUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError エラーレスポンスを統一フォーマットで返す
func respondError(c *gin.Context, err error, message string) {
	c.JSON(statusForError(err), gin.H{
		"success": false,
		"error":   message + ": " + err.Error(),
	})
}

// queryInt クエリパラメータを整数として取得する（範囲外・不正は既定値）
func queryInt(c *gin.Context, name string, defaultValue, min, max int) int {
	if s := c.Query(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= min && v <= max {
			return v
		}
	}
	return defaultValue
}

// queryFloat クエリパラメータを浮動小数点数として取得する
func queryFloat(c *gin.Context, name string, defaultValue float64) float64 {
	if s := c.Query(name); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
