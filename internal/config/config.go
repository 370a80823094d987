package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// RelayUrlKey is the base url of the relay the daemon publishes offers and trades to
	RelayUrlKey = "RELAY_URL"
	// ExplorerUrlKey is the base url of the esplora instance used to track escrow transactions
	ExplorerUrlKey = "EXPLORER_URL"
	// SyncIntervalKey is the interval in seconds between two relay syncs of the open trades
	SyncIntervalKey = "SYNC_INTERVAL"
	// TxPollIntervalKey is the interval in seconds between two confirmation polls of a watched transaction
	TxPollIntervalKey = "TX_POLL_INTERVAL"
	// StatsIntervalKey defines interval for printing basic daemon statistics
	StatsIntervalKey = "STATS_INTERVAL"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// RelayRetryAttemptsKey is the number of attempts for a relay request before giving up
	RelayRetryAttemptsKey = "RELAY_RETRY_ATTEMPTS"
	// RelayRetryDelayKey is the delay in seconds between two attempts of the same relay request
	RelayRetryDelayKey = "RELAY_RETRY_DELAY"
	// ExplorerRequestsPerSecondKey caps the rate of confirmation polls against the explorer
	ExplorerRequestsPerSecondKey = "EXPLORER_REQUESTS_PER_SECOND"

	DbLocation       = "db"
	ProfilerLocation = "stats"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("peertrade-daemon", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("PEERTRADE")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ExplorerUrlKey, "https://blockstream.info/api")
	vip.SetDefault(SyncIntervalKey, 30)
	vip.SetDefault(TxPollIntervalKey, 60)
	vip.SetDefault(StatsIntervalKey, 600)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(RelayRetryAttemptsKey, 3)
	vip.SetDefault(RelayRetryDelayKey, 2)
	vip.SetDefault(ExplorerRequestsPerSecondKey, 2)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if !vip.IsSet(RelayUrlKey) {
		return fmt.Errorf("missing relay url")
	}
	if !validateUrl(GetString(RelayUrlKey)) {
		return fmt.Errorf("%s must be a valid http(s) url", RelayUrlKey)
	}
	if !validateUrl(GetString(ExplorerUrlKey)) {
		return fmt.Errorf("%s must be a valid http(s) url", ExplorerUrlKey)
	}

	if GetInt(RelayRetryAttemptsKey) < 1 {
		return fmt.Errorf("%s must be equal or greater than 1", RelayRetryAttemptsKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	profilerEnabled := GetBool(EnableProfilerKey)
	if profilerEnabled {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func validateUrl(rawUrl string) bool {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
