package commands

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// ConfigPersister implements the pocketbase.SessionPersister interface by
// writing sessions into the CLI configuration file.
type ConfigPersister struct {
	mutex sync.Mutex
	url   string
	now   func() time.Time
}

// NewConfigPersister creates a persister for sessions held against url.
func NewConfigPersister(url string) *ConfigPersister {
	return &ConfigPersister{url: url, now: time.Now}
}

// PersistSession saves state, or removes the saved session when state is
// empty.
func (p *ConfigPersister) PersistSession(state pocketbase.AuthState) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	if !state.IsAuthenticated() {
		if config.Session == nil {
			return nil
		}

		config.Session = nil

		return saveConfigStruct(config)
	}

	if config.Session != nil && config.Session.URL == p.url && config.Session.Token == state.Token {
		return nil
	}

	record, err := json.Marshal(state.Record)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}

	config.URL = p.url
	config.Session = &SessionConfig{
		URL:        p.url,
		Collection: state.CollectionName,
		Token:      state.Token,
		Record:     string(record),
		SavedAt:    p.now().UTC().Format(time.RFC3339),
	}

	return saveConfigStruct(config)
}
