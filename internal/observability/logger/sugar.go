package logger

import (
	"go.uber.org/zap"
)

// S retorna el SugaredLogger del singleton.
// Útil para logs rápidos con formato printf-style.
//
// Ejemplo:
//
//	logger.S().Infof("cache %s initialized", name)
//	logger.S().Errorw("reload failed", "error", err, "path", path)
func S() *zap.SugaredLogger {
	return L().Sugar()
}
