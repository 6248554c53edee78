package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lapse/internal/backup"
	"lapse/internal/capture"
	"lapse/internal/config"
	"lapse/internal/ledger"
	"lapse/internal/logging"
	"lapse/internal/montage"
	"lapse/internal/notifications"
	"lapse/internal/pipeline"
	"lapse/internal/reconcile"
	"lapse/internal/report"
	"lapse/internal/sequence"
	"lapse/internal/services/camera"
	"lapse/internal/services/imaging"
	"lapse/internal/services/mailer"
	"lapse/internal/services/rclone"
	"lapse/internal/upload"
	"lapse/internal/volume"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	ledgerOnce sync.Once
	ledger     *ledger.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger: console plus the active log file,
// which end_of_day_sync later archives and rotates.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stdout", cfg.LogFile()},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// ensureLedger opens the lifecycle ledger. A nil store is acceptable
// everywhere it is consumed, so open failures degrade silently to logs.
func (c *commandContext) ensureLedger() *ledger.Store {
	c.ledgerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			return
		}
		store, err := ledger.Open(cfg)
		if err != nil {
			c.ensureLogger().Warn("ledger unavailable", logging.Error(err))
			return
		}
		c.ledger = store
	})
	return c.ledger
}

func (c *commandContext) remote() rclone.Client {
	cfg, _ := c.ensureConfig()
	return rclone.NewCLI(
		rclone.WithBinary(cfg.RcloneBinary()),
		rclone.WithRetries(cfg.Remote.TransferRetries),
		rclone.WithTimeout(time.Duration(cfg.Remote.TransferTimeout)*time.Second),
	)
}

func (c *commandContext) volumeManager() *volume.Manager {
	cfg, _ := c.ensureConfig()
	return volume.NewManager(cfg, c.ensureLogger())
}

func (c *commandContext) cameraClient() camera.Client {
	cfg, _ := c.ensureConfig()
	return camera.NewCLI(
		camera.WithBinary(cfg.Camera.Binary),
		camera.WithDevice(cfg.Camera.Device),
		camera.WithExtraArgs(cfg.Camera.ExtraArgs),
	)
}

func (c *commandContext) notifier() notifications.Service {
	cfg, _ := c.ensureConfig()
	return notifications.NewService(cfg)
}

func (c *commandContext) mailClient() mailer.Client {
	cfg, _ := c.ensureConfig()
	return mailer.NewCLI(mailer.WithBinary(cfg.Mail.Binary))
}

func (c *commandContext) sequenceAuthority(vol volume.Mounter, remote rclone.Client) *sequence.Authority {
	cfg, _ := c.ensureConfig()
	return sequence.NewAuthority(cfg, remote, vol, c.ensureLogger())
}

func (c *commandContext) montageBuilder(vol volume.Mounter, remote rclone.Client, notifier notifications.Service) *montage.Builder {
	cfg, _ := c.ensureConfig()
	return montage.NewBuilder(cfg, imaging.NewCLI(), remote, c.mailClient(), vol, notifier, c.ensureLogger())
}

func (c *commandContext) pipelineRunner() (*pipeline.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	remote := c.remote()
	vol := c.volumeManager()
	notifier := c.notifier()
	auth := c.sequenceAuthority(vol, remote)

	return pipeline.NewRunner(
		cfg,
		auth,
		capture.NewController(cfg, c.cameraClient(), logger),
		upload.NewManager(cfg, remote, auth, logger),
		backup.NewManager(vol, logger),
		c.montageBuilder(vol, remote, notifier),
		notifier,
		c.ensureLedger(),
		logger,
	), nil
}

func (c *commandContext) reconciler() (*reconcile.Reconciler, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	remote := c.remote()
	vol := c.volumeManager()

	return reconcile.NewReconciler(
		cfg,
		remote,
		upload.NewManager(cfg, remote, c.sequenceAuthority(vol, remote), logger),
		backup.NewManager(vol, logger),
		vol,
		c.notifier(),
		c.ensureLedger(),
		logger,
	), nil
}

func (c *commandContext) reporter() (*report.Reporter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return report.NewReporter(cfg, c.remote(), c.volumeManager(), c.ensureLedger(), c.ensureLogger()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
