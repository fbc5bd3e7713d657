package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"gorm.io/gorm"
)

// Users mirrors the gorm repository, including gorm.ErrRecordNotFound for misses.
type Users struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
}

var _ repositories.UserRepository = (*Users)(nil)

func NewUsers() *Users {
	return &Users{users: make(map[uint]models.User)}
}

func (r *Users) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	user.ID = r.nextID
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *Users) GetUserByID(id uint) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *Users) GetUserByEmail(email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *Users) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID })
}

func (r *Users) GetUserByCalendarToken(token string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.CalendarToken != nil && *u.CalendarToken == token })
}

func (r *Users) UpdateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *Users) DeleteUser(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Users) SearchUsers(query string, university string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query = strings.ToLower(query)
	out := []models.User{}
	for _, u := range r.users {
		if u.University != university {
			continue
		}
		if strings.Contains(strings.ToLower(u.FullName), query) || strings.Contains(u.Email, query) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *Users) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			c := u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
