package config

// Claves de propiedades, particionadas por dominio. Todas las fuentes se
// mergean en un único snapshot; las vistas por dominio solo aportan defaults
// propios.
const (
	// ───── Dominio controller ─────
	PropControllerIP          = "controller.ip"
	PropControllerMonitorPort = "controller.monitor_port"
	PropControllerVerbose     = "controller.verbose"
	PropControllerDevMode     = "controller.dev_mode"
	PropControllerSecurity    = "controller.security"
	PropControllerUsageReport = "controller.usage_report"
	PropControllerAllowSignUp = "controller.allow_sign_up"
	PropControllerHelpURL     = "controller.help_url"

	// Backend del motor de cache (memory | redis).
	PropControllerCacheDriver = "controller.cache_driver"
	PropControllerCacheAddr   = "controller.cache_addr"
	PropControllerCacheDB     = "controller.cache_db"
	PropControllerCachePrefix = "controller.cache_prefix"

	// ───── Dominio cluster ─────
	PropClusterEnabled      = "cluster.enabled"
	PropClusterMembers      = "cluster.members"
	PropClusterPort         = "cluster.port"
	PropClusterRegion       = "cluster.region"
	PropClusterHiddenRegion = "cluster.hidden_region"

	// ───── Dominio database ─────
	PropDatabaseURL             = "database.url"
	PropDatabaseUsername        = "database.username"
	PropDatabasePassword        = "database.password"
	PropDatabaseMaxConns        = "database.max_conns"
	PropDatabaseConnMaxLifetime = "database.conn_max_lifetime"

	// ───── Dominio internal (no modificable por el usuario) ─────
	PropInternalVersion             = "internal.version"
	PropInternalMinimumAgentVersion = "internal.minimum_agent_version"

	// PropHomeDir se inyecta en cada snapshot con el home resuelto.
	PropHomeDir = "gridload.home"
)

// DefaultClusterListenerPort es el puerto de escucha del cluster por defecto.
const DefaultClusterListenerPort = 40003

// NoneRegion es la región reportada cuando el modo cluster está deshabilitado.
const NoneRegion = "NONE"

var controllerDefaults = map[string]string{
	PropControllerMonitorPort: "13243",
	PropControllerVerbose:     "false",
	PropControllerDevMode:     "false",
	PropControllerSecurity:    "false",
	PropControllerUsageReport: "true",
	PropControllerAllowSignUp: "false",
	PropControllerHelpURL:     "https://github.com/gridload/gridload/wiki",
	PropControllerCacheDriver: "memory",
	PropControllerCacheDB:     "0",
	PropControllerCachePrefix: "gridload:",
}

var clusterDefaults = map[string]string{
	PropClusterEnabled:      "false",
	PropClusterPort:         "40003",
	PropClusterRegion:       NoneRegion,
	PropClusterHiddenRegion: "false",
}

var databaseDefaults = map[string]string{
	PropDatabaseMaxConns:        "10",
	PropDatabaseConnMaxLifetime: "30m",
}

var internalDefaults = map[string]string{}
