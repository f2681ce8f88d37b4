package config

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gridload/gridload/internal/observability/logger"
	"github.com/joho/godotenv"
)

// Variables de entorno y directorios por defecto para resolver el home.
const (
	EnvHome   = "GRIDLOAD_HOME"
	EnvExHome = "GRIDLOAD_EX_HOME"

	defaultHomeDir   = ".gridload"
	defaultExHomeDir = ".gridload_ex"
)

// Archivos bajo el home.
const (
	SystemConfFile   = "system.conf"
	SystemExConfFile = "system-ex.conf"
	DatabaseConfFile = "database.conf"
	AnnouncementFile = "announcement.conf"
	PolicyScriptFile = "process_and_thread_policy.js"

	NoMoreTestLockFile = "no_more_test.lock"
	ShutdownLockFile   = "shutdown.lock"
)

//go:embed home_template
var homeTemplate embed.FS

// Home es un directorio de configuración del controller (home o ex-home).
type Home struct {
	dir string
}

// NewHome crea un Home apuntando al directorio dado, sin side effects.
func NewHome(dir string) *Home {
	return &Home{dir: dir}
}

// ResolveHome resuelve el home del controller: GRIDLOAD_HOME si está seteado,
// sino ~/.gridload.
func ResolveHome() (*Home, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return NewHome(dir), nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve user home: %w", err)
	}
	return NewHome(filepath.Join(userHome, defaultHomeDir)), nil
}

// ResolveExHome resuelve el home extendido (overrides): GRIDLOAD_EX_HOME si
// está seteado, sino ~/.gridload_ex. Puede no existir; en ese caso no se
// aplican overrides.
func ResolveExHome() (*Home, error) {
	if dir := os.Getenv(EnvExHome); dir != "" {
		return NewHome(dir), nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve user home: %w", err)
	}
	return NewHome(filepath.Join(userHome, defaultExHomeDir)), nil
}

// Dir retorna la ruta del directorio.
func (h *Home) Dir() string { return h.dir }

// Exists reporta si el directorio existe.
func (h *Home) Exists() bool {
	fi, err := os.Stat(h.dir)
	return err == nil && fi.IsDir()
}

// SubFile retorna la ruta absoluta de un archivo bajo el home.
func (h *Home) SubFile(name string) string {
	return filepath.Join(h.dir, name)
}

// Init crea el directorio si no existe y copia los archivos de configuración
// por defecto embebidos, solo para los que falten. Nunca pisa archivos del
// usuario.
func (h *Home) Init() error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("config: create home %s: %w", h.dir, err)
	}
	log := logger.Named("config")
	entries, err := fs.ReadDir(homeTemplate, "home_template")
	if err != nil {
		return fmt.Errorf("config: read home template: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dst := h.SubFile(e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := fs.ReadFile(homeTemplate, "home_template/"+e.Name())
		if err != nil {
			return fmt.Errorf("config: read template %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("config: write default %s: %w", dst, err)
		}
		log.Info("default configuration file created", logger.Path(dst))
	}
	return nil
}

// Properties carga un archivo de propiedades (key=value) bajo el home.
func (h *Home) Properties(name string) (map[string]string, error) {
	return godotenv.Read(h.SubFile(name))
}

// WriteFile escribe un archivo bajo el home de forma atómica: temp + fsync +
// rename. Los lectores concurrentes, watchdogs incluidos, nunca ven un
// archivo a medio escribir. Si el rename falla con el destino ocupado se
// intenta remove+rename, preservando el archivo viejo ante un doble fallo.
func (h *Home) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("config: create home %s: %w", h.dir, err)
	}
	tmp, err := os.CreateTemp(h.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("config: fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	_ = os.Chmod(tmpPath, 0o644)
	dst := h.SubFile(name)
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(dst)
		if err2 := os.Rename(tmpPath, dst); err2 != nil {
			return fmt.Errorf("config: rename %s: %v (after remove: %v)", dst, err, err2)
		}
	}
	return nil
}

// ReadFile lee un archivo bajo el home como string.
func (h *Home) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(h.SubFile(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HasLock reporta si existe el lock file indicado bajo el home.
func (h *Home) HasLock(name string) bool {
	_, err := os.Stat(h.SubFile(name))
	return err == nil
}
