package config

const (
	defaultProjectName        = "Timelapse"
	defaultStagingDir         = "~/.local/share/lapse/staging"
	defaultThumbnailDir       = "~/.local/share/lapse/thumbnails"
	defaultLogDir             = "~/.local/share/lapse/logs"
	defaultCounterFile        = "~/.local/share/lapse/sequence.txt"
	defaultCameraBinary       = "libcamera-still"
	defaultCaptureTimeout     = 60
	defaultCaptureBackoff     = 10
	defaultTransferRetries    = 3
	defaultTransferTimeout    = 300
	defaultVolumeMountPoint   = "/mnt/lapse-backup"
	defaultVolumeBackupDir    = "backups"
	defaultQuarantineDir      = "quarantine"
	defaultMountTimeout       = 15
	defaultIntervalMinutes    = 15
	defaultStartHour          = 7
	defaultStopHour           = 19
	defaultSyncTime           = "20:00"
	defaultMontageTime        = "20:30"
	defaultCleanupTime        = "21:00"
	defaultCrontabPath        = "~/.config/lapse/lapse.cron"
	defaultExecutable         = "/usr/local/bin/lapse"
	defaultNotifyTimeout      = 10
	defaultDedupWindowSeconds = 600
	defaultMailBinary         = "mail"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Project: Project{
			Name: defaultProjectName,
		},
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			ThumbnailDir: defaultThumbnailDir,
			LogDir:       defaultLogDir,
			CounterFile:  defaultCounterFile,
		},
		Camera: Camera{
			Binary:         defaultCameraBinary,
			CaptureTimeout: defaultCaptureTimeout,
			RetryBackoff:   defaultCaptureBackoff,
		},
		Remote: Remote{
			TransferRetries: defaultTransferRetries,
			TransferTimeout: defaultTransferTimeout,
		},
		Volume: Volume{
			MountPoint:    defaultVolumeMountPoint,
			BackupDir:     defaultVolumeBackupDir,
			QuarantineDir: defaultQuarantineDir,
			MountTimeout:  defaultMountTimeout,
		},
		Schedule: Schedule{
			IntervalMinutes: defaultIntervalMinutes,
			StartHour:       defaultStartHour,
			StopHour:        defaultStopHour,
			SyncTime:        defaultSyncTime,
			MontageTime:     defaultMontageTime,
			CleanupTime:     defaultCleanupTime,
			CrontabPath:     defaultCrontabPath,
			Executable:      defaultExecutable,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			DedupWindowSeconds: defaultDedupWindowSeconds,
		},
		Mail: Mail{
			Binary: defaultMailBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
