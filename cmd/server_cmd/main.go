package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/settlenet-io/settle-go/cmd"
	"github.com/settlenet-io/settle-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "SETTLE_CONFIG"
)

func main() {
	logconfig.ConfigProductionLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Settlement engine configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Settlement engine configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	esc := PrepareEngineServerConfig()
	if esc == nil {
		fmt.Printf("Error loading engine server configuration\n")
		return
	}

	fmt.Println("Starting settlement engine server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartEngineServerAndWait(esc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareEngineServerConfig reads configuration variables and returns an
// EngineServerConfig.
func PrepareEngineServerConfig() *cmd.EngineServerConfig {
	return &cmd.EngineServerConfig{
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// identities
		OperatorAddr: viper.GetString("OPERATOR_ADDR"),
		RelayerAddr:  viper.GetString("RELAYER_ADDR"),
		CustodyAddr:  viper.GetString("CUSTODY_ADDR"),
		// registry side
		SettlementTimeoutSec: viper.GetInt64("SETTLEMENT_TIMEOUT_SEC"),
		TransferTimeoutSec:   viper.GetInt64("TRANSFER_TIMEOUT_SEC"),
		AuthorizedMatchers:   viper.GetStringSlice("AUTHORIZED_MATCHERS"),
		SupportedAssets:      viper.GetStringSlice("SUPPORTED_ASSETS"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
