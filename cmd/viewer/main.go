package main

import (
	"flag"
	"log"
	"runtime"
	"strings"

	"lumen/internal/logger"
	"lumen/pkg/config"
	"lumen/pkg/editor"
	"lumen/pkg/engine"
	"lumen/pkg/gpu"
	"lumen/pkg/gpu/opengl"
	"lumen/pkg/platform"
	"lumen/pkg/renderer"
	"lumen/pkg/resource"
	"lumen/pkg/scene"
)

func init() {
	// GLFW requires the program to be running on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file (.yaml or .toml)")
	capturePath := flag.String("capture", "", "Render -frames frames, save the last one to this path and exit")
	frames := flag.Int("frames", 60, "Frames rendered before -capture saves")
	textures := flag.String("textures", "", "Comma separated cookie and smoke textures")
	softFactor := flag.Float64("soft-factor", -1, "Soft boundary sharpness factor of the demo smoke")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Log)
	defer logger.Close()
	logger.Info("Starting lumen viewer...")

	window, err := platform.NewWindow(cfg.Window, logger)
	if err != nil {
		logger.Fatalf("Failed to open window: %v", err)
	}
	defer window.Close()

	device, err := opengl.New()
	if err != nil {
		logger.Fatalf("Failed to initialize OpenGL: %v", err)
	}
	logger.Infof("OpenGL %s", opengl.Version())

	width, height := window.FramebufferSize()
	r, err := renderer.New(gpu.NewState(device), width, height,
		renderer.WithLogger(logger), renderer.WithConfig(cfg.Renderer))
	if err != nil {
		logger.Fatalf("Failed to initialize renderer: %v", err)
	}
	defer r.Close()

	store := resource.NewStore(logger)
	defer store.Release()
	var cookie, smoke *scene.Texture
	if *textures != "" {
		loaded, _ := store.LoadTextures(strings.Split(*textures, ","), runtime.NumCPU())
		if len(loaded) > 0 {
			cookie = loaded[0]
		}
		if len(loaded) > 1 {
			smoke = loaded[1]
		}
	}

	demo, particles := demoScene(cookie, smoke)
	scenes := scene.NewContainer()
	scenes.Add(demo)

	if *softFactor >= 0 {
		handler := editor.NewParticleSystemHandler(logger)
		exec := &editor.Executor{Graph: demo.Graph, Log: logger}
		if err := handler.Handle(particles, editor.SoftBoundaryFactorChanged{Factor: float32(*softFactor)}, exec); err != nil {
			logger.Warnf("Soft factor not applied: %v", err)
		}
	}

	eng, err := engine.NewEngine(window, r, scenes, store, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize engine: %v", err)
	}
	defer eng.Close()

	watcher, err := config.Watch(*configPath, eng.ApplyConfig, func(err error) {
		logger.Warnf("Config reload failed: %v", err)
	})
	if err != nil {
		logger.Warnf("Live config reload disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	if *capturePath != "" {
		dt := float32(1) / 60
		if *frames < 1 {
			*frames = 1
		}
		for i := 0; i < *frames && !window.ShouldClose(); i++ {
			if i == *frames-1 {
				eng.CaptureNext(*capturePath)
			}
			if err := eng.Step(dt); err != nil {
				logger.Warnf("Frame %d: %v", i, err)
			}
		}
		return
	}

	logger.Info("Engine initialized, starting render loop...")
	eng.Run()
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	if cfg.File == "" {
		return logger.NewLogger(cfg.Level)
	}
	l, err := logger.NewMultiLogger(cfg.Level, cfg.File)
	if err != nil {
		log.Printf("Failed to open log file, logging to stdout: %v", err)
		return logger.NewLogger(cfg.Level)
	}
	return l
}
