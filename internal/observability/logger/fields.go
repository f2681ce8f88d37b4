package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - CONFIGURACIÓN
// =================================================================================

// Path crea un campo para una ruta de archivo observada o cargada.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Source crea un campo para el origen de un snapshot (base, override).
func Source(v string) zap.Field {
	return zap.String("source", v)
}

// Keys crea un campo para la cantidad de claves de un snapshot.
func Keys(v int) zap.Field {
	return zap.Int("keys", v)
}

// Listener crea un campo para el índice de un listener notificado.
func Listener(v int) zap.Field {
	return zap.Int("listener", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - CLUSTER
// =================================================================================

// Region crea un campo para la región del controller.
func Region(v string) zap.Field {
	return zap.String("region", v)
}

// Member crea un campo para un miembro del cluster (ip:port).
func Member(v string) zap.Field {
	return zap.String("member", v)
}

// Peers crea un campo para la cantidad de peers remotos.
func Peers(v int) zap.Field {
	return zap.Int("peers", v)
}

// CacheName crea un campo para el nombre de un cache.
func CacheName(v string) zap.Field {
	return zap.String("cache", v)
}

// InstanceID crea un campo para el id de la instancia del controller.
func InstanceID(v string) zap.Field {
	return zap.String("instance_id", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// CAMPOS GENÉRICOS
// =================================================================================

// Key crea un campo genérico para una clave.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Value crea un campo genérico para un valor (string).
func Value(v string) zap.Field {
	return zap.String("value", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
