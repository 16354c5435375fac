package config

import (
	"os"
	"path/filepath"
	"testing"
)

// first default dev-node account; its address is well known
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDerivesSignerAddress(t *testing.T) {
	path := writeConfig(t, `
server:
  listenAddr: ":8000"
  postgresDsn: "host=localhost user=postgres dbname=postgres"
ledger:
  rpcUrl: "http://localhost:8545"
  chainIds: [31337]
  accessControlAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  auditLogAddress: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
  privatekey: "`+testKey+`"
`)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if conf.Ledger.SignerAddr != "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266" {
		t.Fatalf("unexpected derived signer address %s", conf.Ledger.SignerAddr)
	}
	if conf.Ledger.ConfirmTimeout != 120 {
		t.Fatalf("expected default confirm timeout, got %d", conf.Ledger.ConfirmTimeout)
	}
}

func TestLoadRejectsBadKey(t *testing.T) {
	path := writeConfig(t, `
ledger:
  chainIds: [31337]
  privatekey: "nothex"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid private key to be rejected")
	}
}

func TestLoadRequiresChainIDs(t *testing.T) {
	path := writeConfig(t, `
ledger:
  privatekey: "`+testKey+`"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing chainIds to be rejected")
	}
}
