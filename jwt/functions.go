package jwt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	mediflow "github.com/singhaditya73/MediFlow"
)

// Create creates a wallet-signed JWT. The signature is an eth personal-sign
// over header.payload, so any standard wallet can produce a compatible token.
func Create(claims Claims, privatekey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return "", err
	}

	header := Header{
		Type:      "JWT",
		Algorithm: "ETH-PERSONAL",
		KeyID:     mediflow.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
	headerStr, err := json.Marshal(header)
	if err != nil {
		return "", err
	}

	payloadStr, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	headerB64 := base64.RawURLEncoding.EncodeToString(headerStr)
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadStr)
	target := headerB64 + "." + payloadB64

	signatureBytes, err := crypto.Sign(accounts.TextHash([]byte(target)), key)
	if err != nil {
		return "", err
	}
	signatureBytes[64] += 27 // wallet convention
	signatureB64 := base64.RawURLEncoding.EncodeToString(signatureBytes)

	return target + "." + signatureB64, nil
}

// Validate checks the jwt signature and expiry and recovers the signing
// wallet address. The recovered address must match the key id.
func Validate(jwt string) (*Header, *Claims, error) {

	split := strings.Split(jwt, ".")
	if len(split) != 3 {
		return nil, nil, fmt.Errorf("invalid jwt format")
	}

	var header Header
	headerBytes, err := base64.RawURLEncoding.DecodeString(split[0])
	if err != nil {
		return nil, nil, err
	}
	err = json.Unmarshal(headerBytes, &header)
	if err != nil {
		return nil, nil, err
	}

	if header.Type != "JWT" || header.Algorithm != "ETH-PERSONAL" {
		return nil, nil, fmt.Errorf("unsupported JWT type")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(split[1])
	if err != nil {
		return nil, nil, err
	}

	var claims Claims
	err = json.Unmarshal(payloadBytes, &claims)
	if err != nil {
		return nil, nil, err
	}

	if claims.ExpirationTime != "" {
		exp, err := strconv.ParseInt(claims.ExpirationTime, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		now := time.Now().Unix()
		if exp < now {
			return nil, nil, fmt.Errorf("jwt is already expired")
		}
	}

	signatureBytes, err := base64.RawURLEncoding.DecodeString(split[2])
	if err != nil {
		return nil, nil, err
	}
	if len(signatureBytes) != 65 {
		return nil, nil, fmt.Errorf("invalid signature length")
	}

	keyID := header.KeyID
	if keyID == "" {
		keyID = claims.Issuer
	}
	if !mediflow.IsAddress(keyID) {
		return nil, nil, fmt.Errorf("key id is not a wallet address")
	}

	sig := make([]byte, 65)
	copy(sig, signatureBytes)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubkey, err := crypto.SigToPub(accounts.TextHash([]byte(split[0]+"."+split[1])), sig)
	if err != nil {
		return nil, nil, err
	}

	recovered := crypto.PubkeyToAddress(*pubkey).Hex()
	if !mediflow.SameAddress(recovered, keyID) {
		return nil, nil, fmt.Errorf("signature does not match key id")
	}

	return &header, &claims, nil
}
