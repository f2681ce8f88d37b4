package config

import (
	"github.com/gridload/gridload/internal/metrics"
	"github.com/gridload/gridload/internal/observability/logger"
	"go.uber.org/zap"
)

// Listener recibe el snapshot nuevo después de cada reload exitoso.
// Un error retornado se loguea y no afecta a los demás listeners ni revierte
// el swap del snapshot.
type Listener func(*Snapshot) error

// ListenerRegistry es la secuencia ordenada de suscriptores de cambios de
// configuración. El orden de inserción es el orden de notificación; no hay
// deduplicación.
//
// El registro de listeners ocurre solo durante el setup, antes de iniciar los
// watchers, por lo que la notificación en régimen no necesita locking.
type ListenerRegistry struct {
	listeners []Listener
	log       *zap.Logger
}

// NewListenerRegistry crea un registry vacío.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{log: logger.Named("config")}
}

// Add agrega un listener al final del orden de notificación.
func (r *ListenerRegistry) Add(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Len retorna la cantidad de listeners registrados.
func (r *ListenerRegistry) Len() int { return len(r.listeners) }

// Notify invoca cada listener en orden de registro con el snapshot nuevo.
// Los errores se loguean y se cuentan, pero no cortan la cadena.
func (r *ListenerRegistry) Notify(snap *Snapshot) {
	for i, l := range r.listeners {
		if err := l(snap); err != nil {
			metrics.ConfigListenerErrors.Inc()
			r.log.Error("configuration listener failed",
				logger.Listener(i), logger.Err(err))
		}
	}
}
