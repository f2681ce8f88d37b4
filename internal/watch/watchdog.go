// Package watch implementa los watchdogs de archivos del controller.
//
// Un Watchdog observa un único archivo por polling de su fecha de modificación
// e invoca un callback exactamente una vez por cada cambio detectado. Cada
// instancia es independiente: corre en su propia goroutine y no comparte
// estado con otros watchdogs.
package watch

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/gridload/gridload/internal/metrics"
	"github.com/gridload/gridload/internal/observability/logger"
	"go.uber.org/zap"
)

// DefaultDelay es el intervalo de polling por defecto entre chequeos.
const DefaultDelay = 2000 * time.Millisecond

var (
	// ErrWatcherStopped se retorna al intentar Start() sobre un watchdog detenido.
	// Un watchdog detenido es terminal: hay que construir uno nuevo.
	ErrWatcherStopped = errors.New("watch: watchdog already stopped")

	// ErrAlreadyRunning se retorna al intentar Start() dos veces.
	ErrAlreadyRunning = errors.New("watch: watchdog already running")
)

// Estados del watchdog. Transiciones válidas: Created→Running→Stopped.
const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// Options configura un Watchdog.
type Options struct {
	// Path es la ruta absoluta del archivo a observar. Obligatorio.
	Path string

	// Delay es el intervalo de polling. Si es 0 se usa DefaultDelay.
	Delay time.Duration

	// OnChange es el callback invocado ante cada cambio detectado. Obligatorio.
	// Se ejecuta de forma síncrona en la goroutine del watchdog, no en la del
	// caller.
	OnChange func()
}

// Watchdog observa la fecha de modificación de un archivo por polling.
type Watchdog struct {
	path     string
	delay    time.Duration
	onChange func()
	log      *zap.Logger

	state  atomic.Int32
	cancel context.CancelFunc

	// lastMod solo se toca desde la goroutine de polling una vez iniciada.
	// El baseline se captura en New: un archivo preexistente no dispara un
	// primer cambio espurio; un archivo creado después sí dispara.
	lastMod time.Time
}

// New construye un Watchdog en estado Created. No toca el filesystem salvo
// para capturar el mtime inicial del archivo (si existe).
func New(opts Options) (*Watchdog, error) {
	if opts.Path == "" {
		return nil, errors.New("watch: Path is required")
	}
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	w := &Watchdog{
		path:     opts.Path,
		delay:    delay,
		onChange: opts.OnChange,
		log:      logger.Named("watchdog"),
	}
	if fi, err := os.Stat(opts.Path); err == nil {
		w.lastMod = fi.ModTime()
	}
	return w, nil
}

// Start lanza la goroutine de polling. Solo es válido desde el estado Created.
func (w *Watchdog) Start() error {
	if !w.state.CompareAndSwap(stateCreated, stateRunning) {
		if w.state.Load() == stateStopped {
			return ErrWatcherStopped
		}
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.log.Debug("watchdog started", logger.Path(w.path), logger.Duration(w.delay))
	go w.loop(ctx)
	return nil
}

// Stop detiene el watchdog. Es idempotente y no bloquea esperando a que la
// goroutine observe la cancelación: el cierre es cooperativo dentro de un
// intervalo de polling.
func (w *Watchdog) Stop() {
	prev := w.state.Swap(stateStopped)
	if prev == stateRunning && w.cancel != nil {
		w.cancel()
		w.log.Debug("watchdog stopped", logger.Path(w.path))
	}
}

// Running reporta si el watchdog está en estado Running.
func (w *Watchdog) Running() bool {
	return w.state.Load() == stateRunning
}

func (w *Watchdog) loop(ctx context.Context) {
	ticker := time.NewTicker(w.delay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		w.check(ctx)
	}
}

// check lee el mtime del archivo y dispara onChange si cambió desde el último
// chequeo. Un archivo ausente o ilegible cuenta como "sin cambios" y el
// polling continúa (condición transitoria).
func (w *Watchdog) check(ctx context.Context) {
	fi, err := os.Stat(w.path)
	if err != nil {
		metrics.WatchdogStatErrors.Inc()
		w.log.Debug("watched file not readable", logger.Path(w.path), logger.Err(err))
		return
	}
	mod := fi.ModTime()
	if mod.Equal(w.lastMod) {
		return
	}
	w.lastMod = mod
	if ctx.Err() != nil {
		// Stop() ganó la carrera: no invocar el callback.
		return
	}
	metrics.WatchdogChanges.WithLabelValues(w.path).Inc()
	w.log.Info("watched file changed", logger.Path(w.path))
	w.onChange()
}
