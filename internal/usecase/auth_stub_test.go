package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

type memoryUserRepository struct {
	mu        sync.Mutex
	byID      map[string]domain.User
	createErr error
	lookupErr error
	creates   int
	updates   int
	links     int
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{byID: make(map[string]domain.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	r.byID[user.ID] = user
	r.creates++
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, user := range r.byID {
		if user.Email == email {
			copy := user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepository) UpdateProfile(_ context.Context, id, name string, dob *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Name = name
	user.DOB = dob
	user.UpdatedAt = updatedAt
	r.byID[id] = user
	r.updates++
	return nil
}

func (r *memoryUserRepository) LinkGoogle(_ context.Context, id, googleID string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok || user.GoogleID != nil {
		return repository.ErrNotFound
	}
	user.GoogleID = &googleID
	user.UpdatedAt = updatedAt
	r.byID[id] = user
	r.links++
	return nil
}

func (r *memoryUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memoryOTPStore struct {
	mu         sync.Mutex
	challenges map[string]domain.OTPChallenge
	replaceErr error
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{challenges: make(map[string]domain.OTPChallenge)}
}

func (s *memoryOTPStore) Replace(_ context.Context, challenge domain.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	challenge.Attempts = 0
	s.challenges[challenge.Email] = challenge
	return nil
}

func (s *memoryOTPStore) Get(_ context.Context, email string) (*domain.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &challenge, nil
}

func (s *memoryOTPStore) ReserveAttempt(_ context.Context, email string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[email]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if challenge.Attempts >= limit {
		return 0, repository.ErrLimitExceeded
	}
	challenge.Attempts++
	s.challenges[email] = challenge
	return challenge.Attempts, nil
}

func (s *memoryOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[email]; !ok {
		return repository.ErrNotFound
	}
	delete(s.challenges, email)
	return nil
}

func (s *memoryOTPStore) has(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.challenges[email]
	return ok
}

type sequenceCodeGenerator struct {
	codes []string
	next  int
}

func (g *sequenceCodeGenerator) Generate() (string, error) {
	if len(g.codes) == 0 {
		return "", errors.New("no codes configured")
	}
	code := g.codes[g.next%len(g.codes)]
	g.next++
	return code, nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(code string) (string, error) {
	return "hashed:" + code, nil
}

func (prefixHasher) Compare(hash, code string) (bool, error) {
	return strings.TrimPrefix(hash, "hashed:") == code, nil
}

type slowCountingHasher struct {
	prefixHasher
	delay    time.Duration
	compares atomic.Int32
}

func (h *slowCountingHasher) Compare(hash, code string) (bool, error) {
	h.compares.Add(1)
	time.Sleep(h.delay)
	return h.prefixHasher.Compare(hash, code)
}

type sentOTP struct {
	email string
	code  string
	ttl   time.Duration
}

type recordingNotifier struct {
	sent []sentOTP
	err  error
}

func (n *recordingNotifier) SendOTP(_ context.Context, email, code string, ttl time.Duration) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentOTP{email: email, code: code, ttl: ttl})
	return nil
}

func (n *recordingNotifier) last() sentOTP {
	if len(n.sent) == 0 {
		return sentOTP{}
	}
	return n.sent[len(n.sent)-1]
}

type stubIdentityVerifier struct {
	identities map[string]domain.GoogleIdentity
}

func (v *stubIdentityVerifier) Verify(_ context.Context, idToken string) (domain.GoogleIdentity, error) {
	identity, ok := v.identities[idToken]
	if !ok {
		return domain.GoogleIdentity{}, errors.New("token used too late")
	}
	return identity, nil
}

type recordingEventPublisher struct {
	registered []domain.UserRegisteredEvent
	signedIn   []domain.UserSignedInEvent
	linked     []domain.GoogleAccountLinkedEvent
	err        error
}

func (p *recordingEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return p.err
}

func (p *recordingEventPublisher) PublishUserSignedIn(_ context.Context, event domain.UserSignedInEvent) error {
	p.signedIn = append(p.signedIn, event)
	return p.err
}

func (p *recordingEventPublisher) PublishGoogleAccountLinked(_ context.Context, event domain.GoogleAccountLinkedEvent) error {
	p.linked = append(p.linked, event)
	return p.err
}

type memoryNoteRepository struct {
	notes     []domain.Note
	createErr error
}

func (r *memoryNoteRepository) Create(_ context.Context, note domain.Note) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.notes = append(r.notes, note)
	return nil
}

func (r *memoryNoteRepository) ListByUser(_ context.Context, userID string) ([]domain.Note, error) {
	var out []domain.Note
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].UserID == userID {
			out = append(out, r.notes[i])
		}
	}
	return out, nil
}

func (r *memoryNoteRepository) DeleteByOwner(_ context.Context, userID, noteID string) error {
	for i, note := range r.notes {
		if note.ID == noteID && note.UserID == userID {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
