package model

// VaultFile represents the encrypted store file structure
type VaultFile struct {
	Version    int    `json:"version"`
	ScryptN    int    `json:"scryptN"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// Wallet is a wallet linked to the user's account on the backend
type Wallet struct {
	Address   string `json:"address"`
	Provider  string `json:"provider,omitempty"`
	Name      string `json:"name,omitempty"`
	Custodial bool   `json:"custodial,omitempty"`
}

// MergeWallets joins the linked and custodial wallet lists, keeping the first entry per address.
func MergeWallets(wallets, custodial []Wallet) []Wallet {
	seen := make(map[string]struct{}, len(wallets)+len(custodial))
	out := make([]Wallet, 0, len(wallets)+len(custodial))
	add := func(w Wallet) {
		if w.Address == "" {
			return
		}
		if _, ok := seen[w.Address]; ok {
			return
		}
		seen[w.Address] = struct{}{}
		out = append(out, w)
	}
	for _, w := range wallets {
		add(w)
	}
	for _, w := range custodial {
		w.Custodial = true
		add(w)
	}
	return out
}
