package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appConfig mirrors the CLI flag surface, bound through viper so every flag
// doubles as an environment variable (RELKEEPER_<FLAG_NAME>).
type appConfig struct {
	ConfigFile string

	DownloadDir   string
	DistroSubDirs []string
	PrivateSubDir string

	MonitorEnable   bool
	MonitorInterval time.Duration

	WebhookEnable    bool
	WebhookPort      int
	WebhookSecret    string
	WebhookRetries   int
	WebhookDelay     time.Duration
	WebhookRateLimit int
	WebhookRateBurst int

	InitialCollect bool

	GitHubToken string

	LogFile  string
	LogLevel string
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("download-dir", "./downloads", "root directory assets are downloaded into")
	flags.StringSlice("distro-sub-dirs", nil, "comma-separated distribution sub-directories used to partition the download root")
	flags.String("private-sub-dir", "", "sub-directory used for assets of private repositories")

	flags.Bool("monitor-enable", true, "enable the periodic release monitor")
	flags.Int("monitor-interval", 600, "monitor sweep interval, in seconds")

	flags.Bool("webhook-enable", true, "enable the webhook intake HTTP endpoint")
	flags.Int("webhook-port", 8080, "port the webhook intake listens on")
	flags.String("webhook-secret", "", "HMAC secret for webhook signature verification, or $NAME to resolve from the environment")
	flags.Int("webhook-retries", 10, "maximum fetch-via-API retry attempts per webhook delivery")
	flags.Int("webhook-delay", 60, "delay between webhook retry attempts, in seconds")
	flags.Int("webhook-rate-limit", 120, "maximum webhook deliveries accepted per sending IP per minute (0 disables)")
	flags.Int("webhook-rate-burst", 20, "burst headroom on top of webhook-rate-limit")

	flags.Bool("initial-collect", false, "run a synchronous monitor sweep immediately at startup")

	flags.String("github-token", "", "default GitHub token applied to sources without their own, or $NAME")

	flags.String("log-file", "", "write logs to this file instead of stdout")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	flags.String("config-file", "", "path to a viper configuration file (optional; flags and env vars take precedence)")
}

func loadConfig(cmd *cobra.Command, args []string) (appConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("relkeeper")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return appConfig{}, err
	}

	if cfgFile, _ := cmd.Flags().GetString("config-file"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, err
		}
	}

	cfg := appConfig{
		ConfigFile:       args[0],
		DownloadDir:      v.GetString("download-dir"),
		DistroSubDirs:    v.GetStringSlice("distro-sub-dirs"),
		PrivateSubDir:    v.GetString("private-sub-dir"),
		MonitorEnable:    v.GetBool("monitor-enable"),
		MonitorInterval:  time.Duration(v.GetInt("monitor-interval")) * time.Second,
		WebhookEnable:    v.GetBool("webhook-enable"),
		WebhookPort:      v.GetInt("webhook-port"),
		WebhookSecret:    v.GetString("webhook-secret"),
		WebhookRetries:   v.GetInt("webhook-retries"),
		WebhookDelay:     time.Duration(v.GetInt("webhook-delay")) * time.Second,
		WebhookRateLimit: v.GetInt("webhook-rate-limit"),
		WebhookRateBurst: v.GetInt("webhook-rate-burst"),
		InitialCollect:   v.GetBool("initial-collect"),
		GitHubToken:      v.GetString("github-token"),
		LogFile:          v.GetString("log-file"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}
