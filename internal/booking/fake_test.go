// AngelaMos | 2026
// fake_test.go

package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/foxmentors/portal/internal/core"
)

// memoryRepository mirrors the guarded UPDATE of the SQL repository: a
// swap only applies while status and version still match.
type memoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]Booking
	names    map[string]string

	// beforeSwap, when set, runs after the service has read the row but
	// before the guarded write lands.
	beforeSwap func()
}

func newMemoryRepository(names map[string]string) *memoryRepository {
	return &memoryRepository{
		bookings: make(map[int64]Booking),
		names:    names,
	}
}

func (m *memoryRepository) withName(b Booking) Booking {
	if b.MentorID != nil {
		if name, ok := m.names[*b.MentorID]; ok {
			b.MentorName = &name
		}
	}
	return b
}

func (m *memoryRepository) Create(ctx context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now()
	b.ID = m.nextID
	b.Version = 1
	b.CreatedAt = now.Add(time.Duration(m.nextID) * time.Millisecond)
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	return nil
}

func (m *memoryRepository) put(b Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID > m.nextID {
		m.nextID = b.ID
	}
	if b.Version == 0 {
		b.Version = 1
	}
	m.bookings[b.ID] = b
}

func (m *memoryRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	b = m.withName(b)
	return &b, nil
}

func (m *memoryRepository) CompareAndSwap(ctx context.Context, u StatusUpdate) (bool, error) {
	if m.beforeSwap != nil {
		m.beforeSwap()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[u.ID]
	if !ok || b.Status != u.From || b.Version != u.ExpectedVersion {
		return false, nil
	}

	b.Status = u.To
	if u.MentorID != nil {
		mentor := *u.MentorID
		b.MentorID = &mentor
	}
	b.Version++
	b.UpdatedAt = time.Now()
	m.bookings[u.ID] = b
	return true, nil
}

func (m *memoryRepository) sorted(keep func(Booking) bool) []Booking {
	var out []Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, m.withName(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepository) List(ctx context.Context, params ListParams) ([]Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sorted(func(b Booking) bool {
		return params.Status == "" || b.Status == params.Status
	})

	start := min(params.Offset(), len(all))
	end := min(start+params.PageSize, len(all))
	return all[start:end], len(all), nil
}

func (m *memoryRepository) ListByStudentEmail(ctx context.Context, email string) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.sorted(func(b Booking) bool { return b.StudentEmail == email })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepository) ListByMentor(ctx context.Context, mentorID string, status Status) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(func(b Booking) bool {
		return b.AssignedTo(mentorID) && b.Status == status
	}), nil
}

func (m *memoryRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[Status]int)
	for _, st := range AllStatuses() {
		counts[st] = 0
	}
	for _, b := range m.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

type fakeDirectory map[string]Person

func (d fakeDirectory) LookupPerson(ctx context.Context, id string) (*Person, error) {
	p, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("lookup person: %w", core.ErrNotFound)
	}
	return &p, nil
}

const (
	adminID   = "00000000-0000-0000-0000-0000000000a1"
	mentorA   = "00000000-0000-0000-0000-0000000000b1"
	mentorB   = "00000000-0000-0000-0000-0000000000b2"
	studentS  = "00000000-0000-0000-0000-0000000000c1"
	studentT  = "00000000-0000-0000-0000-0000000000c2"
	unknownID = "00000000-0000-0000-0000-0000000000ff"
)

func testDirectory() fakeDirectory {
	return fakeDirectory{
		adminID:  {ID: adminID, Email: "admin@x.com", Name: "Admin", Role: core.RoleAdmin},
		mentorA:  {ID: mentorA, Email: "arjun@x.com", Name: "Arjun", Role: core.RoleMentor},
		mentorB:  {ID: mentorB, Email: "simran@x.com", Name: "Simran", Role: core.RoleMentor},
		studentS: {ID: studentS, Email: "s@x.com", Name: "Sam", Role: core.RoleStudent},
		studentT: {ID: studentT, Email: "t@x.com", Name: "Tara", Role: core.RoleStudent},
	}
}

func newTestService() (*Service, *memoryRepository) {
	dir := testDirectory()
	names := make(map[string]string, len(dir))
	for id, p := range dir {
		names[id] = p.Name
	}
	repo := newMemoryRepository(names)
	return NewService(repo, dir), repo
}

var (
	admin    = Actor{UserID: adminID, Role: core.RoleAdmin}
	mentor   = Actor{UserID: mentorA, Role: core.RoleMentor}
	other    = Actor{UserID: mentorB, Role: core.RoleMentor}
	student  = Actor{UserID: studentS, Role: core.RoleStudent}
	student2 = Actor{UserID: studentT, Role: core.RoleStudent}
)
