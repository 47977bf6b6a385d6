package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
)

var pngData = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}

func pngUpload(name string) UploadedFile {
	return UploadedFile{Name: name, Data: append([]byte(nil), pngData...)}
}

func testConfig() *config.Config {
	return &config.Config{
		Storage:      config.StorageConfig{Backend: "local", MaxImageSize: 1024},
		Catalog:      config.CatalogConfig{DefaultPageSize: 10, MaxPageSize: 100},
		App:          config.AppConfig{BaseURL: "http://shop.test"},
		Mail:         config.MailConfig{FromName: "Needus", FromEmail: "noreply@shop.test"},
		Verification: config.VerificationConfig{TokenTTL: 24},
		JWT:          config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
	}
}

// fakeAttachments keeps stored files in memory.
type fakeAttachments struct {
	mu          sync.Mutex
	files       map[string][]byte
	stores      int
	failOnStore int
	failRemove  bool
	removed     []string
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{files: make(map[string][]byte)}
}

func (f *fakeAttachments) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stores++
	if f.failOnStore > 0 && f.stores == f.failOnStore {
		return "", errors.New("disk full")
	}
	name := storedName(originalName)
	f.files[name] = append([]byte(nil), data...)
	return name, nil
}

func (f *fakeAttachments) Remove(ctx context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failRemove {
		return false
	}
	if _, ok := f.files[name]; !ok {
		return false
	}
	delete(f.files, name)
	f.removed = append(f.removed, name)
	return true
}

func (f *fakeAttachments) URL(name string) string {
	return fmt.Sprintf("http://files.test/%s", name)
}

func (f *fakeAttachments) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

func (f *fakeAttachments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// failingTxStore runs the transaction body and then fails the commit.
type failingTxStore struct {
	*memory.Store
	err error
}

func (s *failingTxStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		return s.err
	})
}

// recordingMailer captures sent mail.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	To, Subject, HTML, Text string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: htmlBody, Text: textBody})
	return m.err
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }
func strPtr(s string) *string       { return &s }
func intPtr(i int) *int             { return &i }

func pricePtr(value string) *decimal.Decimal {
	price := decimal.RequireFromString(value)
	return &price
}
