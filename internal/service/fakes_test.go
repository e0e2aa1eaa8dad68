package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/repo/postgres"
	"github.com/diagnosis/accounts-api/pkg/auth"
)

func cheapHasher() *auth.Hasher {
	return auth.NewHasher(auth.WithParams(argon2id.Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  auth.SaltLength,
		KeyLength:   32,
	}))
}

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	findErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, &postgres.DuplicateError{Constraint: "email_unique"}
		}
		if existing.Phone == u.Phone {
			return nil, &postgres.DuplicateError{Constraint: "phone_unique"}
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, id string, upd postgres.UserUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if upd.Email != nil {
		for _, other := range m.byID {
			if other.ID != id && other.Email == *upd.Email {
				return nil, &postgres.DuplicateError{Constraint: "email_unique"}
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Salt != nil {
		u.Salt = *upd.Salt
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash, salt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return "", nil
	}
	u.PasswordHash = hash
	u.Salt = salt
	return id, nil
}

func (m *memUsers) Delete(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	delete(m.byID, id)
	return u, nil
}

type memFiles struct {
	mu    sync.Mutex
	files []domain.File
	seq   int
}

func (m *memFiles) Create(_ context.Context, f *domain.File) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.files {
		if existing.ObjectKey == f.ObjectKey {
			return nil, &postgres.DuplicateError{Constraint: "r2_files_object_key_key"}
		}
	}
	m.seq++
	cp := *f
	cp.ID = string(rune('a' + m.seq))
	cp.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Second)
	cp.UploadTimestamp = cp.CreatedAt
	m.files = append(m.files, cp)
	return &cp, nil
}

func (m *memFiles) ListByUser(_ context.Context, userID string) ([]domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.File{}
	for _, f := range m.files {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeStore struct {
	public  string
	putErr  error
	puts    map[string][]byte
	lastTTL time.Duration
}

func (f *fakeStore) PresignPut(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	f.lastTTL = ttl
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = b
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	if f.public == "" {
		return ""
	}
	return f.public + "/" + key
}

var errBoom = errors.New("boom")
