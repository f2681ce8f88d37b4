// gridload es el controller de load testing distribuido.
//
// Este binario arma la capa de infraestructura: configuración en caliente,
// identidad en el cluster, topología del cache distribuido y motor de cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gridload/gridload/internal/cache"
	"github.com/gridload/gridload/internal/cluster"
	"github.com/gridload/gridload/internal/config"
	"github.com/gridload/gridload/internal/database"
	"github.com/gridload/gridload/internal/metrics"
	"github.com/gridload/gridload/internal/observability/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		homeDir  string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "gridload",
		Short: "Distributed load testing controller",
	}
	root.PersistentFlags().StringVar(&homeDir, "home", "", "directorio de configuración (default: $GRIDLOAD_HOME o ~/.gridload)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "nivel de log: debug|info|warn|error")

	run := &cobra.Command{
		Use:   "run",
		Short: "Arranca el controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(homeDir, logLevel)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(homeDir)
			if err != nil {
				return err
			}
			if _, err := store.Load(); err != nil {
				return err
			}
			fmt.Println(store.Version())
			return nil
		},
	}

	root.AddCommand(run, version)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openStore resuelve home/ex-home, materializa los defaults y construye el
// Store. Sin watchers todavía.
func openStore(homeDir string) (*config.Store, error) {
	var home *config.Home
	if homeDir != "" {
		home = config.NewHome(homeDir)
	} else {
		h, err := config.ResolveHome()
		if err != nil {
			return nil, err
		}
		home = h
	}
	if err := home.Init(); err != nil {
		return nil, err
	}
	exHome, err := config.ResolveExHome()
	if err != nil {
		return nil, err
	}
	return config.NewStore(config.StoreOptions{Home: home, ExHome: exHome})
}

func runController(homeDir, logLevel string) error {
	logger.Init(logger.Config{
		Env:         envOr("APP_ENV", "dev"),
		Level:       logLevel,
		ServiceName: "gridload",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("bootstrap")

	instanceID := uuid.NewString()

	store, err := openStore(homeDir)
	if err != nil {
		return err
	}
	snap, err := store.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := metrics.RegisterConfig(nil); err != nil {
		return err
	}

	log.Info("gridload controller starting",
		logger.InstanceID(instanceID),
		logger.String("version", store.Version()),
		logger.Region(store.Region()),
		logger.Path(store.Home().Dir()),
	)

	// Listeners de cambio de configuración: se registran antes de Start().
	store.AddListener(func(snap *config.Snapshot) error {
		log.Info("configuration reloaded", logger.Keys(snap.Len()))
		return nil
	})

	// Motor de cache + topología de cluster.
	descriptors, err := cache.LoadDescriptors(store.Home().SubFile("caches.yaml"))
	if err != nil {
		return err
	}
	var topo cluster.Topology
	if store.IsClustered() {
		topo, err = resolveTopology(store, descriptors, log)
		if err != nil {
			// Sin identidad local única no hay setup de cluster posible.
			return err
		}
	}
	mgr, err := cache.NewManager(cache.ManagerOptions{
		Descriptors:  descriptors,
		Backend:      cacheBackend(store),
		PeerProvider: topo.PeerProvider,
		PeerListener: topo.PeerListener,
	})
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()
	for _, d := range descriptors {
		if _, err := mgr.Cache(d.Name); err != nil {
			return err
		}
	}

	// Pool de base de datos, si está configurado.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if url := snap.Database().Get(config.PropDatabaseURL); url != "" {
		pool, err := database.Connect(ctx, snap.Database())
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("database pool ready")
	}

	if err := store.Start(); err != nil {
		return fmt.Errorf("start config watchers: %w", err)
	}
	defer store.Stop()

	if ann := store.Announcement(); ann != "" {
		log.Info("announcement", logger.Value(ann))
	}

	<-ctx.Done()
	log.Info("shutting down", logger.InstanceID(instanceID))
	return nil
}

// resolveTopology parsea los miembros del cluster, resuelve la identidad
// local y construye los strings de peer provider/listener.
func resolveTopology(store *config.Store, descriptors []cache.Descriptor, log *zap.Logger) (cluster.Topology, error) {
	port := store.ClusterListenerPort()
	members, err := cluster.ParseMembers(store.ClusterMemberList(), port)
	if err != nil {
		return cluster.Topology{}, err
	}
	local, remotes, err := cluster.NewResolver(cluster.ResolverOptions{}).Resolve(members, port)
	if err != nil {
		return cluster.Topology{}, err
	}
	names := cluster.ExtractReplicatedCacheNames(descriptors)
	topo := cluster.BuildTopology(names, local, remotes)
	log.Info("cluster topology resolved",
		logger.Member(local.String()),
		logger.Peers(len(remotes)),
		logger.String("peer_provider", topo.PeerProvider),
		logger.String("peer_listener", topo.PeerListener),
	)
	return topo, nil
}

// cacheBackend arma la configuración del backend de cache desde el dominio
// controller del snapshot actual.
func cacheBackend(store *config.Store) cache.Config {
	props := store.Current().Controller()
	return cache.Config{
		Driver: props.Get(config.PropControllerCacheDriver),
		Addr:   props.Get(config.PropControllerCacheAddr),
		DB:     props.GetInt(config.PropControllerCacheDB),
		Prefix: props.Get(config.PropControllerCachePrefix),
	}
}
