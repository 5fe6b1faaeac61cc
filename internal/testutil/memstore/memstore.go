// internal/testutil/memstore/memstore.go
//
// Package memstore is an in-memory implementation of the engine's
// repository ports. Transactions take a snapshot of every collection and
// restore it when the function fails, so a failed operation leaves no
// trace. Stored slices are never modified in place, which keeps the
// shallow map snapshot sound.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DB holds every collection.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users      map[primitive.ObjectID]models.User
	households map[primitive.ObjectID]models.Household
	invites    map[string]models.Invite
	tasks      map[primitive.ObjectID]models.Task
	ledger     []models.GemTransaction
	messages   map[primitive.ObjectID]models.DirectMessage
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		users:      map[primitive.ObjectID]models.User{},
		households: map[primitive.ObjectID]models.Household{},
		invites:    map[string]models.Invite{},
		tasks:      map[primitive.ObjectID]models.Task{},
		messages:   map[primitive.ObjectID]models.DirectMessage{},
	}
}

// Deps returns engine dependencies backed by db. Callers fill in the
// optional collaborators.
func (db *DB) Deps() engine.Deps {
	return engine.Deps{
		Users:      (*Users)(db),
		Households: (*Households)(db),
		Invites:    (*Invites)(db),
		Tasks:      (*Tasks)(db),
		Ledger:     (*Ledger)(db),
		Messages:   (*Messages)(db),
		Tx:         db,
	}
}

type snapshot struct {
	users      map[primitive.ObjectID]models.User
	households map[primitive.ObjectID]models.Household
	invites    map[string]models.Invite
	tasks      map[primitive.ObjectID]models.Task
	ledger     []models.GemTransaction
	messages   map[primitive.ObjectID]models.DirectMessage
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Run executes fn. Transactions are serialized with each other; when fn
// returns an error every collection is put back as it was.
func (db *DB) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snap := snapshot{
		users:      copyMap(db.users),
		households: copyMap(db.households),
		invites:    copyMap(db.invites),
		tasks:      copyMap(db.tasks),
		ledger:     append([]models.GemTransaction(nil), db.ledger...),
		messages:   copyMap(db.messages),
	}
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.users = snap.users
		db.households = snap.households
		db.invites = snap.invites
		db.tasks = snap.tasks
		db.ledger = snap.ledger
		db.messages = snap.messages
		db.mu.Unlock()
		return err
	}
	return nil
}

// PutUser stores u, assigning an ID when it has none.
func (db *DB) PutUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	db.users[u.ID] = u
	return u
}

// User returns the stored user; the zero User when missing.
func (db *DB) User(id primitive.ObjectID) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id]
}

// Users returns every stored user in no particular order.
func (db *DB) Users() []models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.User, 0, len(db.users))
	for _, u := range db.users {
		out = append(out, u)
	}
	return out
}

// Household returns the stored household; the zero Household when missing.
func (db *DB) Household(id primitive.ObjectID) models.Household {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.households[id]
}

// Task returns the stored task; the zero Task when missing.
func (db *DB) Task(id primitive.ObjectID) models.Task {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.tasks[id]
}

// LedgerFor returns the user's ledger entries in insertion order.
func (db *DB) LedgerFor(userID primitive.ObjectID) []models.GemTransaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.GemTransaction
	for _, tx := range db.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// MessageCount is the number of stored direct messages.
func (db *DB) MessageCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.messages)
}

// ---- users ----

// Users implements engine.UserRepo.
type Users DB

func (r *Users) db() *DB { return (*DB)(r) }

func (r *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (r *Users) GetMany(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := db.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayNameCI < out[j].DisplayNameCI })
	return out, nil
}

func (r *Users) UpsertIdentity(_ context.Context, provider, subject, email, displayName string) (models.User, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now().UTC()
	for id, u := range db.users {
		if u.AuthProvider == provider && u.AuthSubject == subject {
			u.Email = email
			u.DisplayName = displayName
			u.DisplayNameCI = displayName
			u.UpdatedAt = now
			db.users[id] = u
			return u, nil
		}
	}
	u := models.User{
		ID:            primitive.NewObjectID(),
		Email:         email,
		DisplayName:   displayName,
		DisplayNameCI: displayName,
		AuthProvider:  provider,
		AuthSubject:   subject,
		Households:    []models.UserHousehold{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	db.users[u.ID] = u
	return u, nil
}

func (r *Users) update(id primitive.ObjectID, fn func(u *models.User)) error {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&u)
	db.users[id] = u
	return nil
}

func (r *Users) AddHousehold(_ context.Context, userID primitive.ObjectID, m models.UserHousehold) error {
	return r.update(userID, func(u *models.User) {
		if _, ok := u.Membership(m.HouseholdID); !ok {
			u.Households = append(append([]models.UserHousehold(nil), u.Households...), m)
		}
		hid := m.HouseholdID
		u.CurrentHouseholdID = &hid
	})
}

func (r *Users) RemoveHousehold(_ context.Context, userID, householdID primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) {
		var keep []models.UserHousehold
		for _, m := range u.Households {
			if m.HouseholdID != householdID {
				keep = append(keep, m)
			}
		}
		u.Households = keep
	})
}

func (r *Users) SetCurrentHousehold(_ context.Context, userID primitive.ObjectID, householdID *primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) {
		if householdID == nil {
			u.CurrentHouseholdID = nil
			return
		}
		hid := *householdID
		u.CurrentHouseholdID = &hid
	})
}

func (r *Users) IncGems(_ context.Context, userID primitive.ObjectID, delta int) error {
	return r.update(userID, func(u *models.User) { u.Gems += delta })
}

func (r *Users) DebitGems(_ context.Context, userID primitive.ObjectID, amount int) (bool, error) {
	debited := false
	err := r.update(userID, func(u *models.User) {
		if u.Gems >= amount {
			u.Gems -= amount
			debited = true
		}
	})
	return debited, err
}

func (r *Users) SetNotificationPrefs(_ context.Context, userID primitive.ObjectID, prefs map[string]bool) error {
	return r.update(userID, func(u *models.User) {
		merged := make(map[string]bool, len(u.NotificationPrefs)+len(prefs))
		for k, v := range u.NotificationPrefs {
			merged[k] = v
		}
		for k, v := range prefs {
			merged[k] = v
		}
		u.NotificationPrefs = merged
	})
}

// ---- households ----

// Households implements engine.HouseholdRepo.
type Households DB

func (r *Households) db() *DB { return (*DB)(r) }

func (r *Households) Create(_ context.Context, h models.Household) (models.Household, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	db.households[h.ID] = h
	return h, nil
}

func (r *Households) GetByID(_ context.Context, id primitive.ObjectID) (models.Household, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.households[id]
	if !ok {
		return models.Household{}, mongo.ErrNoDocuments
	}
	return h, nil
}

func (r *Households) update(id primitive.ObjectID, fn func(h *models.Household)) error {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.households[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&h)
	db.households[id] = h
	return nil
}

func (r *Households) AddMember(_ context.Context, householdID, userID primitive.ObjectID) error {
	return r.update(householdID, func(h *models.Household) {
		if !h.IsMember(userID) {
			h.Members = append(append([]primitive.ObjectID(nil), h.Members...), userID)
		}
	})
}

func (r *Households) RemoveMember(_ context.Context, householdID, userID primitive.ObjectID) error {
	return r.update(householdID, func(h *models.Household) {
		var keep []primitive.ObjectID
		for _, m := range h.Members {
			if m != userID {
				keep = append(keep, m)
			}
		}
		h.Members = keep
	})
}

func (r *Households) AddInviteLink(_ context.Context, householdID primitive.ObjectID, link models.InviteLink) error {
	return r.update(householdID, func(h *models.Household) {
		h.InviteLinks = append(append([]models.InviteLink(nil), h.InviteLinks...), link)
	})
}

func (r *Households) UpdateSettings(_ context.Context, householdID primitive.ObjectID, upd engine.HouseholdSettings) error {
	return r.update(householdID, func(h *models.Household) {
		if upd.Name != nil {
			h.Name = *upd.Name
		}
		if upd.GemPrompt != nil {
			h.GemPrompt = *upd.GemPrompt
		}
		if upd.AllowGemOverride != nil {
			h.AllowGemOverride = *upd.AllowGemOverride
		}
	})
}

// ---- invites ----

// Invites implements engine.InviteRepo.
type Invites DB

func (r *Invites) Create(_ context.Context, inv models.Invite) error {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	db.invites[inv.Token] = inv
	return nil
}

func (r *Invites) GetByToken(_ context.Context, token string) (models.Invite, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	inv, ok := db.invites[token]
	if !ok {
		return models.Invite{}, mongo.ErrNoDocuments
	}
	return inv, nil
}

// ---- tasks ----

// Tasks implements engine.TaskRepo.
type Tasks DB

func (r *Tasks) db() *DB { return (*DB)(r) }

func (r *Tasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	db.tasks[t.ID] = t
	return t, nil
}

func (r *Tasks) GetByID(_ context.Context, id primitive.ObjectID) (models.Task, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return models.Task{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (r *Tasks) ListByHousehold(_ context.Context, householdID primitive.ObjectID, status models.TaskStatus) ([]models.Task, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Task
	for _, t := range db.tasks {
		if t.HouseholdID == householdID && (status == "" || t.Status == status) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Tasks) update(id primitive.ObjectID, fn func(t *models.Task)) error {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	db.tasks[id] = t
	return nil
}

func (r *Tasks) Transition(_ context.Context, id primitive.ObjectID, from, to models.TaskStatus, claimedBy *primitive.ObjectID) (bool, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	switch to {
	case models.TaskClaimed:
		if claimedBy != nil {
			c := *claimedBy
			t.ClaimedBy = &c
		}
	case models.TaskDraft, models.TaskPublished:
		t.ClaimedBy = nil
	}
	t.UpdatedAt = time.Now().UTC()
	db.tasks[id] = t
	return true, nil
}

func (r *Tasks) SetVerifications(_ context.Context, id primitive.ObjectID, vs []models.Verification) error {
	return r.update(id, func(t *models.Task) {
		t.Verifications = append([]models.Verification(nil), vs...)
	})
}

func (r *Tasks) AddDecline(_ context.Context, id, userID primitive.ObjectID) error {
	return r.update(id, func(t *models.Task) {
		if !t.HasDeclined(userID) {
			t.DeclinedBy = append(append([]primitive.ObjectID(nil), t.DeclinedBy...), userID)
		}
	})
}

func (r *Tasks) Update(_ context.Context, id primitive.ObjectID, e engine.TaskEdit) error {
	return r.update(id, func(t *models.Task) {
		if e.Title != nil {
			t.Title = *e.Title
		}
		if e.Description != nil {
			t.Description = *e.Description
		}
		if e.Gems != nil {
			t.Gems = *e.Gems
		}
		if e.DueDate != nil {
			t.DueDate = *e.DueDate
		}
		if e.ClearRecur {
			t.Recurrence = nil
		} else if e.Recurrence != nil {
			rc := *e.Recurrence
			t.Recurrence = &rc
		}
		if e.ChecklistItems != nil {
			t.ChecklistItems = append([]models.ChecklistItem(nil), (*e.ChecklistItems)...)
		}
	})
}

func (r *Tasks) SetChecklist(_ context.Context, id primitive.ObjectID, items []models.ChecklistItem) error {
	return r.update(id, func(t *models.Task) {
		t.ChecklistItems = append([]models.ChecklistItem(nil), items...)
	})
}

func (r *Tasks) DeleteDraft(_ context.Context, id primitive.ObjectID) (bool, error) {
	db := r.db()
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok || t.Status != models.TaskDraft {
		return false, nil
	}
	delete(db.tasks, id)
	return true, nil
}

// ---- ledger ----

// Ledger implements engine.LedgerRepo.
type Ledger DB

func (r *Ledger) Append(_ context.Context, tx models.GemTransaction) error {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	db.ledger = append(append([]models.GemTransaction(nil), db.ledger...), tx)
	return nil
}

func (r *Ledger) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.GemTransaction, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.GemTransaction
	for i := len(db.ledger) - 1; i >= 0; i-- {
		if db.ledger[i].UserID != userID {
			continue
		}
		out = append(out, db.ledger[i])
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// ---- messages ----

// Messages implements engine.MessageRepo.
type Messages DB

func (r *Messages) Create(_ context.Context, m models.DirectMessage) (models.DirectMessage, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	db.messages[m.ID] = m
	return m, nil
}

func (r *Messages) GetByID(_ context.Context, id primitive.ObjectID) (models.DirectMessage, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[id]
	if !ok {
		return models.DirectMessage{}, mongo.ErrNoDocuments
	}
	return m, nil
}

func (r *Messages) ListConversation(_ context.Context, householdID, a, b primitive.ObjectID, limit int64) ([]models.DirectMessage, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.DirectMessage
	for _, m := range db.messages {
		if m.HouseholdID != householdID {
			continue
		}
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (r *Messages) MarkRead(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.messages[id]
	if !ok || m.ReadAt != nil {
		return false, nil
	}
	m.ReadAt = &at
	db.messages[id] = m
	return true, nil
}

func (r *Messages) UnreadCount(_ context.Context, recipientID primitive.ObjectID) (int64, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()
	var n int64
	for _, m := range db.messages {
		if m.RecipientID == recipientID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}
