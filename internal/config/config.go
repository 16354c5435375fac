package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-yaml/yaml"

	mediflow "github.com/singhaditya73/MediFlow"
)

type Config struct {
	Server Server `yaml:"server"`
	Ledger Ledger `yaml:"ledger"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	IpfsAPIAddr   string `yaml:"ipfsApiAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Ledger struct {
	RPCURL            string  `yaml:"rpcUrl"`
	ChainIDs          []int64 `yaml:"chainIds"`
	AccessControlAddr string  `yaml:"accessControlAddress"`
	AuditLogAddr      string  `yaml:"auditLogAddress"`
	PrivateKey        string  `yaml:"privatekey"`
	ConfirmTimeout    int     `yaml:"confirmTimeoutSeconds"`

	// ---
	SignerAddr string
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if len(config.Ledger.ChainIDs) == 0 {
		return Config{}, fmt.Errorf("ledger.chainIds must list at least one supported network")
	}

	key, err := crypto.HexToECDSA(config.Ledger.PrivateKey)
	if err != nil {
		return Config{}, fmt.Errorf("ledger.privatekey is not a valid secp256k1 key: %v", err)
	}
	config.Ledger.SignerAddr = mediflow.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	if config.Ledger.ConfirmTimeout <= 0 {
		config.Ledger.ConfirmTimeout = 120
	}

	return config, nil
}
