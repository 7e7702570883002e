package main

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-viewer/engine"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/config"
	"github.com/Carmen-Shannon/oxy-viewer/engine/logging"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootFlags are the values bound to the root command's persistent flags.
type rootFlags struct {
	configPath string
	backend    string
	modelsDir  string
	catalog    string
	logLevel   string
	watch      bool
	profile    bool
}

func (f *rootFlags) bind(pf *pflag.FlagSet) {
	pf.StringVar(&f.configPath, "config", config.DefaultPath, "config file (.toml or .yaml)")
	pf.StringVar(&f.backend, "backend", "", "renderer backend: gl or wgpu")
	pf.StringVar(&f.modelsDir, "models", "", "directory scanned for .glb/.gltf models")
	pf.StringVar(&f.catalog, "catalog", "", "scene catalog file (.toml or .yaml)")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&f.watch, "watch", false, "reload the current model when its file changes")
	pf.BoolVar(&f.profile, "profile", false, "log frame and memory stats every second")
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "oxy-viewer [model.glb]",
		Short:        "View glTF/GLB models",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger, err := logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				logger.Warn("falling back to info logging", "error", err)
			}
			return runViewer(cfg, logger, args)
		},
	}

	flags.bind(cmd.PersistentFlags())
	cmd.AddCommand(newInspectCommand(), newScenesCommand(flags))
	return cmd
}

// resolveConfig loads the config file and applies flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	overrides := config.Config{
		Renderer: config.RendererConfig{Backend: flags.backend},
		Scenes:   config.ScenesConfig{ModelsDir: flags.modelsDir, Catalog: flags.catalog},
		LogLevel: flags.logLevel,
	}
	if err := config.Merge(&cfg, overrides); err != nil {
		return cfg, err
	}

	// Merge cannot switch a bool off, so explicit flags are assigned.
	pf := cmd.Flags()
	if pf.Changed("watch") {
		cfg.Watch = flags.watch
	}
	if pf.Changed("profile") {
		cfg.Profile = flags.profile
	}
	return cfg, cfg.Validate()
}

// loadCatalog reads the configured catalog and adds any models found in the models directory.
//
// Returns:
//   - scene.Catalog: the catalog
//   - int: how many scenes the scan added
//   - error: an error if the catalog file cannot be read
func loadCatalog(cfg config.Config, logger *slog.Logger) (scene.Catalog, int, error) {
	catalog := scene.NewCatalog(scene.WithLogger(logger))
	if err := catalog.Load(cfg.Scenes.Catalog); err != nil {
		return nil, 0, err
	}
	if cfg.Scenes.ModelsDir == "" {
		return catalog, 0, nil
	}
	paths, err := scene.ScanModels(cfg.Scenes.ModelsDir)
	if err != nil {
		logger.Warn("failed to scan models directory", "dir", cfg.Scenes.ModelsDir, "error", err)
		return catalog, 0, nil
	}
	return catalog, scene.AddModels(catalog, paths), nil
}

func backendType(name string) renderer.RendererBackendType {
	if name == config.BackendWGPU {
		return renderer.BackendTypeWGPU
	}
	return renderer.BackendTypeGL
}

func presentMode(name string) renderer.PresentMode {
	if name == config.PresentUncapped {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}

func runViewer(cfg config.Config, logger *slog.Logger, args []string) error {
	catalog, added, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}
	initialScenes := catalog.Len() - added

	bt := backendType(cfg.Renderer.Backend)
	api := window.ClientAPINone
	if bt == renderer.BackendTypeGL {
		api = window.ClientAPIGL
	}
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithClientAPI(api),
	)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(bt, win,
		renderer.WithLogger(logger),
		renderer.WithPresentMode(presentMode(cfg.Renderer.PresentMode)),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithClearColor(cfg.Renderer.ClearColor),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.Software),
	)
	if err != nil {
		_ = win.Close()
		return err
	}

	cam := camera.NewCamera(
		camera.WithFov(cfg.Camera.Fov),
		camera.WithController(camera.NewOrbitController(cfg.Camera.Position, cfg.Camera.Target)),
	)

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithCamera(cam),
		engine.WithCatalog(catalog),
		engine.WithLogger(logger),
		engine.WithTitle(cfg.Window.Title),
		engine.WithProfiling(cfg.Profile),
		engine.WithWatch(cfg.Watch),
	)
	if err != nil {
		r.Release()
		_ = win.Close()
		return err
	}
	defer eng.Release()

	switch {
	case len(args) == 1:
		if err := eng.Open(args[0]); err != nil {
			return fmt.Errorf("failed to open %q: %w", args[0], err)
		}
	case catalog.Len() > 0:
		if err := eng.SelectScene(0); err != nil {
			logger.Warn("failed to load first scene", "error", err)
		}
	default:
		logger.Info("no scenes; pass a model path or set scenes.models_dir")
	}

	eng.Run()

	if catalog.Len() != initialScenes {
		if err := catalog.Save(cfg.Scenes.Catalog); err != nil {
			logger.Warn("failed to save scene catalog", "path", cfg.Scenes.Catalog, "error", err)
		}
	}
	return nil
}
