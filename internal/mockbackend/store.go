package mockbackend

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

// Store errors, mapped to the backend's JSON error messages.
var (
	ErrUserExists         = errors.NewStd("User already exists")
	ErrUserNotFound       = errors.NewStd("User not found")
	ErrInvalidCredentials = errors.NewStd("Invalid credentials")
)

// ImageRecord is the metadata kept for an uploaded image.
type ImageRecord struct {
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Processed   bool      `json:"processed"`
	ContentType string    `json:"-"`
	data        []byte
}

type user struct {
	passwordHash []byte
	createdAt    time.Time
	images       []ImageRecord
}

// Store holds users and their images in memory.
type Store struct {
	mu    sync.RWMutex
	users map[string]*user
	cost  int
}

// NewStore returns an empty store hashing passwords at the given bcrypt cost.
func NewStore(cost int) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		users: make(map[string]*user),
		cost:  cost,
	}
}

// CreateUser registers a new user. Usernames are unique.
func (s *Store) CreateUser(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return errors.New(err).
			Component("mockbackend").
			Category(errors.CategoryGeneric).
			Context("operation", "hash_password").
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = &user{passwordHash: hash, createdAt: time.Now()}
	return nil
}

// Authenticate checks a username and password pair.
func (s *Store) Authenticate(username, password string) error {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AddImage appends an image to the user's list.
func (s *Store) AddImage(username string, rec ImageRecord, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	rec.data = data
	u.images = append(u.images, rec)
	return nil
}

// Images returns a copy of the user's images. The slice is never nil.
func (s *Store) Images(username string) []ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ImageRecord, 0)
	if u, ok := s.users[username]; ok {
		out = append(out, u.images...)
	}
	return out
}

// Image looks up stored content by its filename.
func (s *Store) Image(filename string) (ImageRecord, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		for _, img := range u.images {
			if img.Filename == filename {
				return img, img.data, true
			}
		}
	}
	return ImageRecord{}, nil, false
}

// MarkProcessed flags one of the user's images as processed. It reports
// whether the image was found.
func (s *Store) MarkProcessed(username, filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return false
	}
	for i := range u.images {
		if u.images[i].Filename == filename {
			u.images[i].Processed = true
			return true
		}
	}
	return false
}

// UserCount reports how many users are registered.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
