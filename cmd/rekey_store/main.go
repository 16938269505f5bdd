// One-off: re-seal the wallet link store file under a new passphrase. Values are kept as they are.
// Usage: STORE_PATH=walletlink.store go run ./cmd/rekey_store
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"golang.org/x/term"
)

func main() {
	path := os.Getenv("STORE_PATH")
	if path == "" {
		path = "walletlink.store"
	}
	// os.Exit skips deferred calls, so all wiping happens inside rekey
	if err := rekey(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "store re-sealed")
}

func rekey(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("store file: %w", err)
	}

	if err := config.PromptForPassword(); err != nil {
		return err
	}
	oldPw, err := config.GetStorePasswordBytes()
	config.SetStorePassword(nil)
	if err != nil {
		return err
	}
	defer clear(oldPw)

	fs, err := storage.OpenFileStore(path, oldPw, crypto.DefaultScryptN)
	if err != nil {
		return fmt.Errorf("open failed: %w", err)
	}
	defer fs.Close()

	newPw, err := readNew()
	if err != nil {
		return err
	}
	defer clear(newPw)

	if err := fs.Rekey(newPw); err != nil {
		return fmt.Errorf("rekey failed: %w", err)
	}
	return nil
}

func readNew() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, "New store password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat new password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		clear(first)
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	defer clear(second)

	if len(first) == 0 || !bytes.Equal(first, second) {
		clear(first)
		return nil, errors.New("passwords are empty or do not match")
	}
	return first, nil
}
