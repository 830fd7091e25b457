// Package memory provides a mutex-guarded in-memory implementation of the
// storage interfaces. It backs unit tests and mirrors the transactional
// guarantees of the Postgres store: CreateBooking and Transfer take effect
// entirely or not at all.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// Ensure Store satisfies the full persistence surface at compile time.
var _ storage.Store = (*Store)(nil)

// Store keeps everything in maps behind one mutex.
type Store struct {
	mu sync.Mutex

	users    map[int64]*models.User
	windows  map[int64]*models.AvailabilityWindow
	ratings  map[int64]*models.Rating
	sessions map[int64]*models.Session
	messages map[int64]*models.ChatMessage
	groups   map[int64]*models.Group
	articles map[int64]*models.Article

	nextID int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		windows:  make(map[int64]*models.AvailabilityWindow),
		ratings:  make(map[int64]*models.Rating),
		sessions: make(map[int64]*models.Session),
		messages: make(map[int64]*models.ChatMessage),
		groups:   make(map[int64]*models.Group),
		articles: make(map[int64]*models.Article),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = s.id()
	user.CreatedAt = time.Now().UTC()
	stored := user
	s.users[user.ID] = &stored
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *u, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) UpdateProfile(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	stored.Name = user.Name
	stored.Bio = user.Bio
	stored.Expertise = user.Expertise
	stored.Rate = user.Rate
	return *stored, nil
}

func (s *Store) ListMentors(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.Role == models.RoleMentor {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AdjustBalance(ctx context.Context, id int64, delta float64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if u.WalletBalance+delta < 0 {
		return models.User{}, app.ErrInsufficientFunds
	}
	u.WalletBalance += delta
	return *u, nil
}

func (s *Store) Transfer(ctx context.Context, fromID, toID int64, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(fromID, toID, amount)
}

func (s *Store) transferLocked(fromID, toID int64, amount float64) error {
	from, ok := s.users[fromID]
	if !ok {
		return storage.ErrNotFound
	}
	to, ok := s.users[toID]
	if !ok {
		return storage.ErrNotFound
	}
	if from.WalletBalance < amount {
		return app.ErrInsufficientFunds
	}
	from.WalletBalance -= amount
	to.WalletBalance += amount
	return nil
}

func (s *Store) AddRating(ctx context.Context, rating models.Rating) (models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[rating.MentorID]; !ok {
		return models.Rating{}, storage.ErrNotFound
	}
	rating.ID = s.id()
	rating.CreatedAt = time.Now().UTC()
	stored := rating
	s.ratings[rating.ID] = &stored
	return rating, nil
}

func (s *Store) RatingsFor(ctx context.Context, mentorID int64) ([]models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Rating
	for _, r := range s.ratings {
		if r.MentorID == mentorID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- availability ---

func (s *Store) AddWindows(ctx context.Context, mentorID int64, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[mentorID]; !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]models.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		w.ID = s.id()
		w.MentorID = mentorID
		stored := w
		s.windows[w.ID] = &stored
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) WindowsFor(ctx context.Context, mentorID int64) ([]models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowsForLocked(mentorID), nil
}

func (s *Store) windowsForLocked(mentorID int64) []models.AvailabilityWindow {
	var out []models.AvailabilityWindow
	for _, w := range s.windows {
		if w.MentorID == mentorID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *Store) DeleteWindow(ctx context.Context, mentorID, windowID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[windowID]
	if !ok || w.MentorID != mentorID {
		return storage.ErrNotFound
	}
	delete(s.windows, windowID)
	return nil
}

// --- sessions ---

func (s *Store) CreateBooking(ctx context.Context, b storage.Booking) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := b.Session
	for _, existing := range s.sessions {
		if existing.MentorID == sess.MentorID && existing.Status != models.StatusCanceled &&
			existing.OverlapsInterval(sess.StartTime, sess.EndTime) {
			return models.Session{}, fmt.Errorf("mentor calendar overlap: %w", app.ErrConflict)
		}
	}
	if err := s.transferLocked(sess.ClientID, sess.MentorID, b.Cost); err != nil {
		return models.Session{}, err
	}
	for id, w := range s.windows {
		if w.MentorID == sess.MentorID && w.Start.Equal(sess.StartTime) && w.End.Equal(sess.EndTime) {
			delete(s.windows, id)
			break
		}
	}

	now := time.Now().UTC()
	sess.ID = s.id()
	sess.Status = models.StatusUpcoming
	sess.CreatedAt = now
	sess.UpdatedAt = now
	stored := sess
	s.sessions[sess.ID] = &stored
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id int64) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, storage.ErrNotFound
	}
	return *sess, nil
}

func (s *Store) UpdateTimes(ctx context.Context, id int64, start, end time.Time, status models.SessionStatus) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, storage.ErrNotFound
	}
	if sess.Status.Terminal() {
		return models.Session{}, app.ErrConflict
	}
	sess.StartTime = start
	sess.EndTime = end
	sess.Status = status
	sess.UpdatedAt = time.Now().UTC()
	return *sess, nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, status models.SessionStatus) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, storage.ErrNotFound
	}
	if sess.Status.Terminal() {
		return models.Session{}, app.ErrConflict
	}
	sess.Status = status
	sess.UpdatedAt = time.Now().UTC()
	return *sess, nil
}

func (s *Store) ListByMentor(ctx context.Context, mentorID int64) ([]models.Session, error) {
	return s.listSessions(func(sess *models.Session) bool { return sess.MentorID == mentorID })
}

func (s *Store) ListByClient(ctx context.Context, clientID int64) ([]models.Session, error) {
	return s.listSessions(func(sess *models.Session) bool { return sess.ClientID == clientID })
}

func (s *Store) listSessions(match func(*models.Session) bool) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if match(sess) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) NextSession(ctx context.Context, userID int64, asMentor bool, now time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *models.Session
	for _, sess := range s.sessions {
		if !matchParty(sess, userID, asMentor) || !sess.StartTime.After(now) {
			continue
		}
		if next == nil || sess.StartTime.Before(next.StartTime) {
			next = sess
		}
	}
	if next == nil {
		return models.Session{}, storage.ErrNotFound
	}
	return *next, nil
}

func (s *Store) ListBetween(ctx context.Context, userID int64, asMentor bool, from, to time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if matchParty(sess, userID, asMentor) && !sess.StartTime.Before(from) && !sess.StartTime.After(to) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func matchParty(sess *models.Session, userID int64, asMentor bool) bool {
	if asMentor {
		return sess.MentorID == userID
	}
	return sess.ClientID == userID
}

func (s *Store) CountByStatus(ctx context.Context) (map[models.SessionStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.SessionStatus]int)
	for _, sess := range s.sessions {
		out[sess.Status]++
	}
	return out, nil
}

// --- messages ---

func (s *Store) CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	msg.ID = s.id()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	stored := msg
	s.messages[msg.ID] = &stored
	return msg, nil
}

func (s *Store) GetMessage(ctx context.Context, id int64) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return models.ChatMessage{}, storage.ErrNotFound
	}
	return copyMessage(msg), nil
}

func (s *Store) DirectHistory(ctx context.Context, a, b int64, page, limit int) ([]models.ChatMessage, error) {
	return s.history(func(m *models.ChatMessage) bool {
		if m.ReceiverID == nil {
			return false
		}
		return (m.SenderID == a && *m.ReceiverID == b) || (m.SenderID == b && *m.ReceiverID == a)
	}, page, limit, false)
}

func (s *Store) GroupHistory(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error) {
	return s.history(func(m *models.ChatMessage) bool {
		return m.GroupID != nil && *m.GroupID == groupID
	}, page, limit, false)
}

func (s *Store) LatestGroupMessages(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error) {
	return s.history(func(m *models.ChatMessage) bool {
		return m.GroupID != nil && *m.GroupID == groupID
	}, page, limit, true)
}

func (s *Store) history(match func(*models.ChatMessage) bool, page, limit int, desc bool) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.ChatMessage
	for _, m := range s.messages {
		if match(m) {
			all = append(all, copyMessage(m))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		// Creation timestamps can collide; the id tiebreak keeps order stable.
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			if desc {
				return all[i].ID > all[j].ID
			}
			return all[i].ID < all[j].ID
		}
		if desc {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, page, limit), nil
}

func paginate(msgs []models.ChatMessage, page, limit int) []models.ChatMessage {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	skip := (page - 1) * limit
	if skip >= len(msgs) {
		return nil
	}
	end := skip + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[skip:end]
}

func (s *Store) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return models.ChatMessage{}, storage.ErrNotFound
	}
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &editedAt
	msg.UpdatedAt = editedAt
	return copyMessage(msg), nil
}

func (s *Store) MarkRead(ctx context.Context, id, readerID int64, at time.Time) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return models.ChatMessage{}, storage.ErrNotFound
	}
	if !msg.ReadBySet(readerID) {
		msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{UserID: readerID, ReadAt: at})
		msg.UpdatedAt = at
	}
	return copyMessage(msg), nil
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func copyMessage(m *models.ChatMessage) models.ChatMessage {
	out := *m
	out.ReadBy = append([]models.ReadReceipt(nil), m.ReadBy...)
	return out
}

// --- groups ---

func (s *Store) CreateGroup(ctx context.Context, group models.Group) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group.ID = s.id()
	group.CreatedAt = time.Now().UTC()
	stored := group
	stored.Members = append([]int64(nil), group.Members...)
	s.groups[group.ID] = &stored
	return group, nil
}

func (s *Store) GetGroup(ctx context.Context, id int64) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return models.Group{}, storage.ErrNotFound
	}
	out := *g
	out.Members = append([]int64(nil), g.Members...)
	return out, nil
}

func (s *Store) AddMember(ctx context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return storage.ErrNotFound
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

// --- articles ---

func (s *Store) CreateArticle(ctx context.Context, article models.Article) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	article.ID = s.id()
	article.CreatedAt = now
	article.UpdatedAt = now
	stored := article
	s.articles[article.ID] = &stored
	return article, nil
}

func (s *Store) GetArticle(ctx context.Context, id int64) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return models.Article{}, storage.ErrNotFound
	}
	return *a, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Article
	for _, a := range s.articles {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article models.Article) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.articles[article.ID]
	if !ok {
		return models.Article{}, storage.ErrNotFound
	}
	stored.Title = article.Title
	stored.Description = article.Description
	if article.BannerURL != "" {
		stored.BannerURL = article.BannerURL
	}
	stored.UpdatedAt = time.Now().UTC()
	return *stored, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.articles, id)
	return nil
}
