package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webhookd/backup-relay/cmd/internal/api"
	"github.com/webhookd/backup-relay/cmd/internal/archive"
	"github.com/webhookd/backup-relay/cmd/internal/artifact"
	"github.com/webhookd/backup-relay/cmd/internal/backup"
	"github.com/webhookd/backup-relay/cmd/internal/constants"
	"github.com/webhookd/backup-relay/cmd/internal/metrics"
	"github.com/webhookd/backup-relay/cmd/internal/relay"
	"github.com/webhookd/backup-relay/cmd/internal/relay/stage"
	"github.com/webhookd/backup-relay/cmd/internal/relay/stage/fileio"
	s3stage "github.com/webhookd/backup-relay/cmd/internal/relay/stage/s3"
	"github.com/webhookd/backup-relay/cmd/internal/utils"
	"github.com/webhookd/backup-relay/cmd/internal/webhook"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	moduleName  = "backup-relay"
	cfgFileType = "yaml"

	// Flags
	logLevelFlg = "log-level"

	folderToBackupFlg   = "folder-to-backup"
	backupFolderFlg     = "backup-folder"
	webhooksFlg         = "webhooks"
	cooldownDurationFlg = "cooldown-duration"

	archiverFlg       = "archiver"
	archiveTimeoutFlg = "archive-timeout"
	httpTimeoutFlg    = "http-timeout"

	stagingProviderFlg = "staging-provider"
	stagingEndpointFlg = "staging-endpoint"

	s3BucketNameFlg = "s3-bucket-name"
	s3RegionFlg     = "s3-region"
	s3EndpointFlg   = "s3-endpoint"
	s3AccessKeyFlg  = "s3-access-key"
	//nolint
	s3SecretKeyFlg = "s3-secret-key"
	s3ObjectPrefix = "s3-object-prefix"

	bindAddrFlg    = "bind-addr"
	portFlg        = "port"
	metricsPortFlg = "metrics-port"
	serverAddrFlg  = "server-endpoint"
)

var (
	cfgFile string
	logger  *zap.SugaredLogger
	stop    context.Context
)

var rootCmd = &cobra.Command{
	Use:          moduleName,
	Short:        "a sidecar that periodically archives a folder and relays the archive to a webhook",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		initConfig()
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the backup relay",
	Long:  "archives the configured folder at a fixed cadence and relays every archive to one of the configured webhooks. small archives are attached to the webhook call directly, large ones are staged at external storage first and only a retrieval link is sent",
	PreRun: func(cmd *cobra.Command, args []string) {
		initSignalHandlers()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		folderToBackup := viper.GetString(folderToBackupFlg)
		webhooks := viper.GetStringSlice(webhooksFlg)

		if err := validateStartConfig(folderToBackup, webhooks); err != nil {
			return err
		}

		store := artifact.NewStore(nil, viper.GetString(backupFolderFlg))
		if err := store.Ensure(); err != nil {
			return err
		}

		archiver, err := archive.New(logger.Named("archive"), viper.GetString(archiverFlg))
		if err != nil {
			return err
		}

		backend := relay.NewBackend(logger.Named("backend"), viper.GetDuration(httpTimeoutFlg))

		stager, err := initStagingUploader(backend)
		if err != nil {
			return err
		}

		m := metrics.New()
		m.Register()
		if err := m.Start(logger.Named("metrics"), fmt.Sprintf("%s:%d", viper.GetString(bindAddrFlg), viper.GetInt(metricsPortFlg))); err != nil {
			return err
		}

		selector := webhook.NewSelector(webhooks, nil)
		router := relay.NewRouter(logger.Named("relay"), selector, stager, backend, m)

		backuper := backup.New(
			logger.Named("backup"),
			folderToBackup,
			archiver,
			store,
			router,
			m,
			viper.GetDuration(archiveTimeoutFlg),
		)

		addr := fmt.Sprintf("%s:%d", viper.GetString(bindAddrFlg), viper.GetInt(portFlg))
		apiServer := api.New(logger.Named("api"), addr, backuper, store)
		if err := apiServer.Start(stop); err != nil {
			return err
		}
		defer func() {
			_ = apiServer.Stop()
		}()

		logger.Infow("starting backup-relay", "folder", folderToBackup, "webhooks", len(webhooks), "bind-addr", addr)

		backuper.Start(stop, backup.ParseCooldown(logger, viper.GetString(cooldownDurationFlg)))

		return nil
	},
}

var backupNowCmd = &cobra.Command{
	Use:   "backup-now",
	Short: "triggers a backup cycle out of the regular time schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := strings.TrimSuffix(viper.GetString(serverAddrFlg), "/") + "/api/v1/backup"

		resp, err := http.Post(url, "application/json", nil) //nolint:gosec
		if err != nil {
			return fmt.Errorf("error triggering backup: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var body struct {
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("unexpected response from control api: %s", string(raw))
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("backup cycle was not successful: %s", body.Outcome)
		}

		fmt.Println(body.Outcome)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:     "list-backups",
	Aliases: []string{"ls"},
	Short:   "lists the artifacts in the backup folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := artifact.NewStore(nil, viper.GetString(backupFolderFlg))

		artifacts, err := store.List()
		if err != nil {
			return fmt.Errorf("error listing backups: %w", err)
		}

		var data [][]string
		for _, a := range artifacts {
			route := "direct"
			if a.Size >= constants.MaxDirectUploadSize {
				route = "staged"
			}
			data = append(data, []string{a.ModTime.String(), a.Name, strconv.FormatInt(a.Size, 10), route})
		}

		p := utils.NewTablePrinter()
		p.Print([]string{"Date", "Name", "Size", "Route"}, data)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			panic(err)
		}
		logger.Fatalw("failed executing root command", "error", err)
	}
}

func init() {
	rootCmd.AddCommand(startCmd, backupNowCmd, lsCmd)

	rootCmd.PersistentFlags().StringP(logLevelFlg, "", "info", "sets the application log level")
	rootCmd.PersistentFlags().StringP(backupFolderFlg, "", constants.DefaultBackupFolder, "the folder where backup archives are placed in")

	err := viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		fmt.Printf("unable to construct root command: %v", err)
		os.Exit(1)
	}

	startCmd.Flags().StringP(folderToBackupFlg, "", "", "the folder that gets backed up")
	startCmd.Flags().StringSlice(webhooksFlg, nil, "the webhook urls that backups are relayed to, one is picked at random per cycle")
	startCmd.Flags().StringP(cooldownDurationFlg, "", fmt.Sprintf("*/%d * * * *", constants.DefaultCooldownMinutes), "cadence between backup cycles, only the pattern */<N> * * * * is recognized with <N> taken as minutes")

	startCmd.Flags().StringP(archiverFlg, "", "7z", "the archiver used to compress backups (7z|targz)")
	startCmd.Flags().DurationP(archiveTimeoutFlg, "", 30*time.Minute, "bounds the archiver invocation")
	startCmd.Flags().DurationP(httpTimeoutFlg, "", 2*time.Minute, "bounds every outbound http call")

	startCmd.Flags().StringP(stagingProviderFlg, "", "fileio", "where artifacts above the direct upload limit are staged (fileio|s3)")
	startCmd.Flags().StringP(stagingEndpointFlg, "", fileio.DefaultEndpoint, "the url of the anonymous staging endpoint")

	startCmd.Flags().StringP(s3BucketNameFlg, "", "", "the name of the s3 staging bucket")
	startCmd.Flags().StringP(s3RegionFlg, "", "", "the region of the s3 staging bucket")
	startCmd.Flags().StringP(s3EndpointFlg, "", "", "the url to the s3 endpoint")
	startCmd.Flags().StringP(s3AccessKeyFlg, "", "", "the s3 access-key-id")
	startCmd.Flags().StringP(s3SecretKeyFlg, "", "", "the s3 secret-key-id")
	startCmd.Flags().StringP(s3ObjectPrefix, "", "", "the prefix to store staged artifacts under in the bucket")

	startCmd.Flags().StringP(bindAddrFlg, "", "127.0.0.1", "the bind addr of the control api server")
	startCmd.Flags().IntP(portFlg, "", 8000, "the port to serve on")
	startCmd.Flags().IntP(metricsPortFlg, "", 2112, "the port the metrics endpoint is served on")

	err = viper.BindPFlags(startCmd.Flags())
	if err != nil {
		fmt.Printf("unable to construct start command: %v", err)
		os.Exit(1)
	}

	backupNowCmd.Flags().StringP(serverAddrFlg, "", "http://127.0.0.1:8000", "the url of the control api server")

	err = viper.BindPFlags(backupNowCmd.Flags())
	if err != nil {
		fmt.Printf("unable to construct backup-now command: %v", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BACKUP_RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType(cfgFileType)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalw("config file path set explicitly, but unreadable", "error", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("/etc/" + moduleName)
		viper.AddConfigPath("$HOME/." + moduleName)
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			usedCfg := viper.ConfigFileUsed()
			if usedCfg != "" {
				logger.Fatalw("config file unreadable", "config-file", usedCfg, "error", err)
			}
		}
	}

	usedCfg := viper.ConfigFileUsed()
	if usedCfg != "" {
		logger.Infow("read config file", "config-file", usedCfg)
	}
}

func initLogging() {
	level := zap.InfoLevel

	var err error
	if viper.IsSet(logLevelFlg) {
		level, err = zapcore.ParseLevel(viper.GetString(logLevelFlg))
		if err != nil {
			log.Fatalf("can't initialize zap logger: %v", err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}

	logger = l.Sugar()
}

func initSignalHandlers() {
	stop, _ = signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
}

func validateStartConfig(folderToBackup string, webhooks []string) error {
	if folderToBackup == "" {
		return fmt.Errorf("folder to backup (%s) must be set", folderToBackupFlg)
	}
	if len(webhooks) == 0 {
		return fmt.Errorf("at least one webhook (%s) must be configured", webhooksFlg)
	}

	return nil
}

func initStagingUploader(backend relay.Backend) (stage.Uploader, error) {
	switch provider := viper.GetString(stagingProviderFlg); provider {
	case "fileio":
		return fileio.New(logger.Named("stage"), backend, viper.GetString(stagingEndpointFlg)), nil
	case "s3":
		uploader, err := s3stage.New(
			stop,
			logger.Named("stage"),
			&s3stage.Config{
				BucketName:   viper.GetString(s3BucketNameFlg),
				Endpoint:     viper.GetString(s3EndpointFlg),
				Region:       viper.GetString(s3RegionFlg),
				AccessKey:    viper.GetString(s3AccessKeyFlg),
				SecretKey:    viper.GetString(s3SecretKeyFlg),
				ObjectPrefix: viper.GetString(s3ObjectPrefix),
			},
		)
		if err != nil {
			return nil, fmt.Errorf("error initializing s3 staging: %w", err)
		}
		if err := uploader.EnsureStagingBucket(stop); err != nil {
			return nil, err
		}
		return uploader, nil
	default:
		return nil, errors.New("unsupported staging provider: " + provider)
	}
}
