package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/AlexZinkM/walletlink/internal/model"

	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt parameters for the store file
	// Security is prioritized over performance
	//
	// N=2^18 (~256MB RAM, 0.5-2s) - same cost the local wallet file used:
	//   - Fits on phones (4-16GB RAM) and desktops alike
	//   - Brute-force attacks remain extremely expensive
	//
	// N is recorded in the file so older files stay readable if the default changes.
	DefaultScryptN = 1 << 18
	scryptR        = 8
	scryptP        = 1
	scryptKeyLen   = 32
	saltLen        = 32
	gcmNonceLen    = 12

	vaultVersion = 1
)

// ErrInvalidPassword is returned when the vault does not open with the given password.
var ErrInvalidPassword = errors.New("invalid password")

// SealVault encrypts plaintext with a key derived from password and returns the vault file bytes.
// password must be []byte for security (caller should zero it after use)
func SealVault(plaintext, password []byte, scryptN int) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if scryptN <= 1 {
		scryptN = DefaultScryptN
	}

	// Generate salt and nonce
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := vaultCipher(password, salt, scryptN)
	if err != nil {
		return nil, err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	vault := model.VaultFile{
		Version:    vaultVersion,
		ScryptN:    scryptN,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	data, err := json.MarshalIndent(vault, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vault file: %w", err)
	}
	return data, nil
}

// OpenVault decrypts vault file bytes produced by SealVault.
// password must be []byte for security (caller should zero it after use)
func OpenVault(data, password []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("vault is empty")
	}

	// Skip UTF-8 BOM if present
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	var vault model.VaultFile
	if err := json.Unmarshal(data, &vault); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vault file: %w", err)
	}
	if vault.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported vault version %d", vault.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(vault.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(vault.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(vault.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := vaultCipher(password, salt, vault.ScryptN)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

func vaultCipher(password, salt []byte, scryptN int) (cipher.AEAD, error) {
	// Derive key from password
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
