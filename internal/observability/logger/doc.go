// Package logger provides a singleton Zap logger for the controller.
//
// # Design Decisions
//
//   - Singleton: Una sola instancia global inicializada con Init().
//   - Named loggers: cada subsistema (config, watchdog, cluster, cache) obtiene
//     su propio logger con Named() para identificar el origen de cada línea.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" o "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En subsistemas:
//
//	log := logger.Named("watchdog")
//	log.Info("watching file", logger.Path(path))
package logger
