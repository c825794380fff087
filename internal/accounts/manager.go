package accounts

import (
	"fmt"
)

// Manager owns the fleet of accounts for one run
type Manager struct {
	accounts []*Account
	byIndex  map[int]*Account
}

// NewManager builds accounts from pairings with 1-based indices
func NewManager(pairs []Pairing) (*Manager, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no accounts to run")
	}

	m := &Manager{
		accounts: make([]*Account, 0, len(pairs)),
		byIndex:  make(map[int]*Account, len(pairs)),
	}
	for i, p := range pairs {
		if err := m.AddAccount(New(p.Token, i+1, p.Proxy)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddAccount adds an account, rejecting duplicate indices
func (m *Manager) AddAccount(account *Account) error {
	if _, exists := m.byIndex[account.Index]; exists {
		return fmt.Errorf("account %02d already exists", account.Index)
	}

	m.accounts = append(m.accounts, account)
	m.byIndex[account.Index] = account
	return nil
}

// GetAccount returns the account with the given index
func (m *Manager) GetAccount(index int) (*Account, error) {
	account, ok := m.byIndex[index]
	if !ok {
		return nil, fmt.Errorf("account %02d not found", index)
	}
	return account, nil
}

// All returns the accounts in index order
func (m *Manager) All() []*Account {
	return m.accounts
}

// Count returns the number of accounts
func (m *Manager) Count() int {
	return len(m.accounts)
}

// Connected returns how many accounts are CONNECTED
func (m *Manager) Connected() int {
	n := 0
	for _, a := range m.accounts {
		if a.Status == StatusConnected {
			n++
		}
	}
	return n
}
